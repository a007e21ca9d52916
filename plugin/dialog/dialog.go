// Package dialog provides the host dialog plugin: native open, save, folder
// and message dialogs exposed to the frontend.
package dialog

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Filter restricts the files shown in an open or save dialog
type Filter struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"` // e.g. "*.csv;*.txt"
}

// Options configures a file dialog
type Options struct {
	Title            string   `json:"title"`
	DefaultDirectory string   `json:"default_directory"`
	DefaultFilename  string   `json:"default_filename"`
	Filters          []Filter `json:"filters"`
}

// Scoper receives every path the user selects
type Scoper interface {
	Allow(path string) error
}

// Backend shows native dialogs. The default backend is the Wails runtime.
type Backend interface {
	OpenFile(ctx context.Context, opts runtime.OpenDialogOptions) (string, error)
	OpenFiles(ctx context.Context, opts runtime.OpenDialogOptions) ([]string, error)
	OpenDirectory(ctx context.Context, opts runtime.OpenDialogOptions) (string, error)
	SaveFile(ctx context.Context, opts runtime.SaveDialogOptions) (string, error)
	Message(ctx context.Context, opts runtime.MessageDialogOptions) (string, error)
}

type wailsBackend struct{}

func (wailsBackend) OpenFile(ctx context.Context, opts runtime.OpenDialogOptions) (string, error) {
	return runtime.OpenFileDialog(ctx, opts)
}

func (wailsBackend) OpenFiles(ctx context.Context, opts runtime.OpenDialogOptions) ([]string, error) {
	return runtime.OpenMultipleFilesDialog(ctx, opts)
}

func (wailsBackend) OpenDirectory(ctx context.Context, opts runtime.OpenDialogOptions) (string, error) {
	return runtime.OpenDirectoryDialog(ctx, opts)
}

func (wailsBackend) SaveFile(ctx context.Context, opts runtime.SaveDialogOptions) (string, error) {
	return runtime.SaveFileDialog(ctx, opts)
}

func (wailsBackend) Message(ctx context.Context, opts runtime.MessageDialogOptions) (string, error) {
	return runtime.MessageDialog(ctx, opts)
}

// Plugin is the dialog plugin
type Plugin struct {
	ctx     context.Context
	backend Backend
	scope   Scoper
}

// New creates a dialog plugin backed by the Wails runtime. scope may be nil.
func New(scope Scoper) *Plugin {
	return NewWithBackend(wailsBackend{}, scope)
}

// NewWithBackend creates a dialog plugin with a custom backend
func NewWithBackend(backend Backend, scope Scoper) *Plugin {
	return &Plugin{backend: backend, scope: scope}
}

// Name implements plugin.Plugin
func (p *Plugin) Name() string { return "dialog" }

// Init implements plugin.Plugin
func (p *Plugin) Init(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("dialog plugin needs a runtime context")
	}
	p.ctx = ctx
	return nil
}

func (p *Plugin) context() (context.Context, error) {
	if p.ctx == nil {
		return nil, fmt.Errorf("dialog plugin not initialised")
	}
	return p.ctx, nil
}

func (p *Plugin) grant(path string) {
	if p.scope == nil || path == "" {
		return
	}
	if err := p.scope.Allow(path); err != nil {
		log.Printf("Warning: Failed to add %s to file scope: %v", path, err)
	}
}

func toFileFilters(filters []Filter) []runtime.FileFilter {
	if len(filters) == 0 {
		return nil
	}
	out := make([]runtime.FileFilter, 0, len(filters))
	for _, f := range filters {
		out = append(out, runtime.FileFilter{DisplayName: f.Name, Pattern: f.Pattern})
	}
	return out
}

func (o Options) openOptions() runtime.OpenDialogOptions {
	return runtime.OpenDialogOptions{
		Title:            o.Title,
		DefaultDirectory: o.DefaultDirectory,
		DefaultFilename:  o.DefaultFilename,
		Filters:          toFileFilters(o.Filters),
	}
}

// Open shows a single-file open dialog. A cancelled dialog returns "".
func (p *Plugin) Open(opts Options) (string, error) {
	ctx, err := p.context()
	if err != nil {
		return "", err
	}
	path, err := p.backend.OpenFile(ctx, opts.openOptions())
	if err != nil {
		return "", fmt.Errorf("failed to open file dialog: %w", err)
	}
	p.grant(path)
	return path, nil
}

// OpenMultiple shows a multi-file open dialog
func (p *Plugin) OpenMultiple(opts Options) ([]string, error) {
	ctx, err := p.context()
	if err != nil {
		return nil, err
	}
	paths, err := p.backend.OpenFiles(ctx, opts.openOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open file dialog: %w", err)
	}
	for _, path := range paths {
		p.grant(path)
	}
	if paths == nil {
		paths = []string{}
	}
	return paths, nil
}

// SelectFolder shows a directory picker
func (p *Plugin) SelectFolder(title string) (string, error) {
	ctx, err := p.context()
	if err != nil {
		return "", err
	}
	path, err := p.backend.OpenDirectory(ctx, runtime.OpenDialogOptions{
		Title:                title,
		CanCreateDirectories: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to open folder dialog: %w", err)
	}
	p.grant(path)
	return path, nil
}

// Save shows a save dialog. A cancelled dialog returns "".
func (p *Plugin) Save(opts Options) (string, error) {
	ctx, err := p.context()
	if err != nil {
		return "", err
	}
	path, err := p.backend.SaveFile(ctx, runtime.SaveDialogOptions{
		Title:                opts.Title,
		DefaultDirectory:     opts.DefaultDirectory,
		DefaultFilename:      opts.DefaultFilename,
		Filters:              toFileFilters(opts.Filters),
		CanCreateDirectories: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to show save dialog: %w", err)
	}
	p.grant(path)
	return path, nil
}

// Message shows a message box. kind is one of info, warning, error or
// question; anything else is treated as info. Returns the chosen button.
func (p *Plugin) Message(kind, title, message string) (string, error) {
	ctx, err := p.context()
	if err != nil {
		return "", err
	}

	dialogType := runtime.InfoDialog
	switch strings.ToLower(kind) {
	case "warning", "warn":
		dialogType = runtime.WarningDialog
	case "error":
		dialogType = runtime.ErrorDialog
	case "question", "confirm":
		dialogType = runtime.QuestionDialog
	}

	return p.backend.Message(ctx, runtime.MessageDialogOptions{
		Type:    dialogType,
		Title:   title,
		Message: message,
	})
}
