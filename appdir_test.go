package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(path string, err error) func() (string, error) {
	return func() (string, error) { return path, err }
}

func TestExecutableDir(t *testing.T) {
	root := string(filepath.Separator)
	cases := []struct {
		name   string
		lookup func() (string, error)
		want   string
	}{
		{"standard install", fixed(filepath.FromSlash("/opt/app/bin/myapp"), nil), filepath.FromSlash("/opt/app/bin")},
		{"directly under root", fixed(filepath.FromSlash("/myapp"), nil), root},
		{"lookup fails", fixed("", errors.New("executable path unavailable")), "."},
		{"empty path", fixed("", nil), "."},
		{"root has no parent", fixed(root, nil), "."},
		{"bare name", fixed("myapp", nil), "."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, executableDir(tc.lookup))
		})
	}
}

func TestGetAppDir_UsesRunningExecutable(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	a := &App{}
	got := a.GetAppDir()
	assert.Equal(t, filepath.Dir(exe), got)
	assert.Equal(t, got, a.GetAppDir(), "repeated calls return the same value")
}

func TestGetAppDir_FallsBackWhenLookupFails(t *testing.T) {
	orig := executablePath
	t.Cleanup(func() { executablePath = orig })
	executablePath = fixed("", errors.New("not supported on this platform"))

	assert.Equal(t, ".", (&App{}).GetAppDir())
}
