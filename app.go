package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"lucky-draw/draw"
	"lucky-draw/plugin"
	"lucky-draw/plugin/dialog"
	"lucky-draw/plugin/files"
	"lucky-draw/plugin/logging"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap/zapcore"
	"golang.design/x/clipboard"
)

// Event names emitted to the frontend
const (
	eventParticipantsChanged = "participants:changed"
	eventDrawCompleted       = "draw:completed"
	eventRosterSynced        = "roster:synced"
	eventRosterError         = "roster:error"
)

// App struct holds the application state
type App struct {
	ctx            context.Context
	db             *sql.DB
	mu             sync.Mutex
	host           *plugin.Host
	logs           *logging.Plugin
	files          *files.Plugin
	dialogs        *dialog.Plugin
	engine         *draw.Engine
	roster         *RosterWatcher
	runtimeReady   bool
	clipboardReady bool
}

// NewApp creates a new App instance. logs is nil in release builds.
func NewApp(logs *logging.Plugin) *App {
	fs := files.New()
	return &App{
		logs:    logs,
		files:   fs,
		dialogs: dialog.New(fs.Scope()),
		engine:  draw.NewEngine(nil),
	}
}

// newLoggingPlugin returns the logging plugin for debug builds and nil
// otherwise
func newLoggingPlugin(debug bool) *logging.Plugin {
	if !debug {
		return nil
	}
	opts := logging.Options{Level: zapcore.InfoLevel}
	if dataDir, err := getDataDir(); err == nil {
		opts.Dir = filepath.Join(dataDir, "logs")
	}
	return logging.New(opts)
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.runtimeReady = true

	if err := a.registerPlugins(ctx); err != nil {
		log.Fatalf("Failed to register plugins: %v", err)
	}

	db, err := initDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	a.db = db

	if err := clipboard.Init(); err != nil {
		log.Printf("Warning: Failed to initialize clipboard: %v", err)
	} else {
		a.clipboardReady = true
	}

	if err := a.startRosterSync(); err != nil {
		log.Printf("Warning: Failed to start roster sync: %v", err)
	}
}

// registerPlugins registers the host plugins in order: logging (debug
// builds only), filesystem, dialog.
func (a *App) registerPlugins(ctx context.Context) error {
	a.host = plugin.NewHost(ctx)

	if a.logs != nil {
		if err := a.host.Register(a.logs); err != nil {
			return err
		}
	}

	if dataDir, err := getDataDir(); err == nil {
		if err := a.files.Scope().Allow(dataDir); err != nil {
			log.Printf("Warning: Failed to allow data directory: %v", err)
		}
	}
	if appDir := a.GetAppDir(); appDir != "." {
		if err := a.files.Scope().Allow(appDir); err != nil {
			log.Printf("Warning: Failed to allow app directory: %v", err)
		}
	}
	if err := a.host.Register(a.files); err != nil {
		return err
	}

	return a.host.Register(a.dialogs)
}

// shutdown is called when the app is closing
func (a *App) shutdown(ctx context.Context) {
	if a.roster != nil {
		if err := a.roster.Close(); err != nil {
			log.Printf("Failed to stop roster watcher: %v", err)
		}
	}

	if a.host != nil {
		a.host.Shutdown()
	}

	if a.db != nil {
		a.db.Close()
	}
}

// emitEvent sends an event to the frontend once the runtime is up
func (a *App) emitEvent(name string, data ...interface{}) {
	if !a.runtimeReady {
		return
	}
	runtime.EventsEmit(a.ctx, name, data...)
}

// Log writes a frontend log line through the logging plugin. It is a no-op
// in release builds.
func (a *App) Log(level string, message string) {
	if a.logs != nil {
		a.logs.Log(level, message)
	}
}

// GetPlugins returns the registered plugin names in registration order
func (a *App) GetPlugins() []string {
	if a.host == nil {
		return []string{}
	}
	return a.host.Names()
}

func (a *App) requireDB() error {
	if a.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return nil
}
