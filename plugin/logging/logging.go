// Package logging provides the host logging plugin. It routes the Wails
// runtime logger, the standard library log package and frontend log calls
// into a single zap logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFileName is the file written inside Options.Dir
const LogFileName = "lucky-draw.log"

// Options configures the logging plugin
type Options struct {
	// Dir receives LogFileName. Empty disables file output.
	Dir string
	// Level is the minimum enabled level.
	Level zapcore.Level
	// Console receives human-readable output. Defaults to os.Stdout.
	Console io.Writer
	// Core replaces the file and console cores when set.
	Core zapcore.Core
}

// Plugin is the logging plugin. Its zero-value logger is a no-op until Init.
type Plugin struct {
	opts   Options
	level  zap.AtomicLevel
	logger atomic.Pointer[zap.Logger]
	file   *os.File
	undo   []func()
	mu     sync.Mutex
}

// New creates a logging plugin
func New(opts Options) *Plugin {
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	p := &Plugin{
		opts:  opts,
		level: zap.NewAtomicLevelAt(opts.Level),
	}
	p.logger.Store(zap.NewNop())
	return p
}

// Name implements plugin.Plugin
func (p *Plugin) Name() string { return "log" }

// Init builds the logger and installs it as the zap global and the
// standard library log output.
func (p *Plugin) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	core := p.opts.Core
	if core == nil {
		cores := []zapcore.Core{
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(p.opts.Console),
				p.level,
			),
		}
		if p.opts.Dir != "" {
			if err := os.MkdirAll(p.opts.Dir, 0755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
			f, err := os.OpenFile(filepath.Join(p.opts.Dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			p.file = f
			cores = append(cores, zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(f),
				p.level,
			))
		}
		core = zapcore.NewTee(cores...)
	}

	l := zap.New(core, zap.IncreaseLevel(p.level))
	p.logger.Store(l)

	p.undo = append(p.undo, zap.ReplaceGlobals(l))
	restore, err := zap.RedirectStdLogAt(l, zapcore.InfoLevel)
	if err != nil {
		return fmt.Errorf("failed to redirect std log: %w", err)
	}
	p.undo = append(p.undo, restore)

	l.Info("logging initialised", zap.Stringer("level", p.level.Level()))
	return nil
}

// Close flushes the logger and restores the previous global loggers
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_ = p.logger.Load().Sync()
	for i := len(p.undo) - 1; i >= 0; i-- {
		p.undo[i]()
	}
	p.undo = nil
	p.logger.Store(zap.NewNop())

	if p.file != nil {
		err := p.file.Close()
		p.file = nil
		return err
	}
	return nil
}

// Logger returns the current zap logger
func (p *Plugin) Logger() *zap.Logger {
	return p.logger.Load()
}

// Log writes a frontend log line at the named level
func (p *Plugin) Log(level string, message string) {
	l := p.logger.Load().With(zap.String("source", "frontend"))
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug":
		l.Debug(message)
	case "warn", "warning":
		l.Warn(message)
	case "error":
		l.Error(message)
	default:
		l.Info(message)
	}
}

// The methods below implement the Wails logger.Logger interface.

func (p *Plugin) Print(message string)   { p.logger.Load().Info(message) }
func (p *Plugin) Trace(message string)   { p.logger.Load().Debug(message) }
func (p *Plugin) Debug(message string)   { p.logger.Load().Debug(message) }
func (p *Plugin) Info(message string)    { p.logger.Load().Info(message) }
func (p *Plugin) Warning(message string) { p.logger.Load().Warn(message) }
func (p *Plugin) Error(message string)   { p.logger.Load().Error(message) }
func (p *Plugin) Fatal(message string)   { p.logger.Load().Fatal(message) }
