package main

import (
	"os"
	"path/filepath"
	"strings"
)

// executablePath is replaced in tests
var executablePath = os.Executable

// executableDir returns the directory holding the executable reported by
// lookup, or "." when the path is unavailable or has no parent.
func executableDir(lookup func() (string, error)) string {
	exe, err := lookup()
	if err != nil || strings.TrimSpace(exe) == "" {
		return "."
	}
	dir := filepath.Dir(exe)
	if dir == "" || dir == filepath.Clean(exe) {
		return "."
	}
	return dir
}

// GetAppDir returns the directory of the running executable, or "."
func (a *App) GetAppDir() string {
	return executableDir(executablePath)
}
