package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
)

// Plugin is a unit of host functionality that is initialised once the
// application runtime context exists. Plugins that hold resources may also
// implement io.Closer; Close is called on shutdown.
type Plugin interface {
	Name() string
	Init(ctx context.Context) error
}

// ErrDuplicate is returned when a plugin name is registered twice.
var ErrDuplicate = errors.New("plugin already registered")

// Host owns the registered plugins for the lifetime of the application
type Host struct {
	ctx     context.Context
	plugins []Plugin
	byName  map[string]Plugin
	closed  bool
	mu      sync.RWMutex
}

// NewHost creates a host bound to the application runtime context
func NewHost(ctx context.Context) *Host {
	return &Host{
		ctx:    ctx,
		byName: make(map[string]Plugin),
	}
}

// Register initialises p and records it. Registration order is kept and
// reversed on shutdown.
func (h *Host) Register(p Plugin) error {
	name := p.Name()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("register %s: host is shut down", name)
	}
	if _, ok := h.byName[name]; ok {
		return fmt.Errorf("register %s: %w", name, ErrDuplicate)
	}

	if err := p.Init(h.ctx); err != nil {
		return fmt.Errorf("init plugin %s: %w", name, err)
	}

	h.plugins = append(h.plugins, p)
	h.byName[name] = p
	log.Printf("Registered plugin: %s", name)
	return nil
}

// Get returns a registered plugin by name
func (h *Host) Get(name string) (Plugin, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.byName[name]
	return p, ok
}

// Names returns plugin names in registration order
func (h *Host) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.plugins))
	for _, p := range h.plugins {
		names = append(names, p.Name())
	}
	return names
}

// Shutdown closes plugins in reverse registration order. Safe to call more
// than once.
func (h *Host) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	plugins := h.plugins
	h.plugins = nil
	h.byName = make(map[string]Plugin)
	h.mu.Unlock()

	for i := len(plugins) - 1; i >= 0; i-- {
		c, ok := plugins[i].(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			log.Printf("Failed to close plugin %s: %v", plugins[i].Name(), err)
		}
	}
}
