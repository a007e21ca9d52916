package main

import (
	"embed"
	"log"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logs := newLoggingPlugin(debugBuild)
	app := NewApp(logs)

	opts := &options.App{
		Title:     "Lucky Draw",
		Width:     1280,
		Height:    800,
		MinWidth:  960,
		MinHeight: 600,
		Frameless: true,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 15, G: 17, B: 21, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		LogLevel:         logger.INFO,
		Bind: []interface{}{
			app,
		},
	}
	if logs != nil {
		opts.Logger = logs
	}

	if err := wails.Run(opts); err != nil {
		log.Fatalf("Error while running application: %v", err)
	}
}
