// Package files provides the host filesystem plugin: text-file access for
// the frontend, restricted to a set of scope roots.
package files

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// MaxReadFileSize limits file reads to prevent memory exhaustion (50MB)
const MaxReadFileSize = 50 * 1024 * 1024

var (
	ErrOutOfScope   = errors.New("path is outside the allowed scope")
	ErrFileTooLarge = errors.New("file too large")
)

// DirEntry describes one entry returned by ReadDir
type DirEntry struct {
	Name     string    `json:"name"`
	IsDir    bool      `json:"is_dir"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Scope is the set of directories and files the plugin may touch. It is
// kept apart from Plugin so that widening it is not exposed to the frontend.
type Scope struct {
	roots []string
	mu    sync.RWMutex
}

// Plugin is the filesystem plugin
type Plugin struct {
	scope *Scope
}

// New creates a filesystem plugin with the given initial scope roots
func New(roots ...string) *Plugin {
	p := &Plugin{scope: &Scope{}}
	for _, r := range roots {
		if err := p.scope.Allow(r); err != nil {
			log.Printf("Warning: Failed to add %s to file scope: %v", r, err)
		}
	}
	return p
}

// Name implements plugin.Plugin
func (p *Plugin) Name() string { return "fs" }

// Init implements plugin.Plugin
func (p *Plugin) Init(ctx context.Context) error {
	return nil
}

// Scope returns the plugin's scope
func (p *Plugin) Scope() *Scope {
	return p.scope
}

// Allow adds a scope root. Files under root, and root itself, become
// accessible.
func (s *Scope) Allow(root string) error {
	if strings.TrimSpace(root) == "" {
		return fmt.Errorf("empty scope root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roots {
		if r == abs {
			return nil
		}
	}
	s.roots = append(s.roots, abs)
	return nil
}

// Roots returns the current scope roots
func (s *Scope) Roots() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.roots))
	copy(out, s.roots)
	return out
}

// Resolve returns the absolute form of path if it lies inside the scope
func (s *Scope) Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, root := range s.roots {
		if isSubPath(root, abs) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("%s: %w", abs, ErrOutOfScope)
}

func isSubPath(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ReadTextFile returns the contents of a file in scope
func (p *Plugin) ReadTextFile(path string) (string, error) {
	abs, err := p.scope.Resolve(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if info.Size() > MaxReadFileSize {
		return "", fmt.Errorf("%s: %d bytes (max %d): %w", abs, info.Size(), MaxReadFileSize, ErrFileTooLarge)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteTextFile writes contents to a file in scope, creating parent dirs
func (p *Plugin) WriteTextFile(path string, contents string) error {
	abs, err := p.scope.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	return os.WriteFile(abs, []byte(contents), 0644)
}

// Exists reports whether path exists. Paths outside the scope report false.
func (p *Plugin) Exists(path string) bool {
	abs, err := p.scope.Resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// ReadDir lists a directory in scope
func (p *Plugin) ReadDir(path string) ([]DirEntry, error) {
	abs, err := p.scope.Resolve(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	result := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		result = append(result, DirEntry{
			Name:     entry.Name(),
			IsDir:    entry.IsDir(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	return result, nil
}

// Mkdir creates a directory (and parents) in scope
func (p *Plugin) Mkdir(path string) error {
	abs, err := p.scope.Resolve(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(abs, 0755)
}

// Remove deletes a file or empty directory in scope. Scope roots themselves
// cannot be removed.
func (p *Plugin) Remove(path string) error {
	abs, err := p.scope.Resolve(path)
	if err != nil {
		return err
	}
	for _, root := range p.scope.Roots() {
		if root == abs {
			return fmt.Errorf("refusing to remove scope root %s", abs)
		}
	}
	return os.Remove(abs)
}
