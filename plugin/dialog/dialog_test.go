package dialog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

type fakeBackend struct {
	path    string
	paths   []string
	err     error
	open    runtime.OpenDialogOptions
	save    runtime.SaveDialogOptions
	message runtime.MessageDialogOptions
}

func (f *fakeBackend) OpenFile(_ context.Context, opts runtime.OpenDialogOptions) (string, error) {
	f.open = opts
	return f.path, f.err
}

func (f *fakeBackend) OpenFiles(_ context.Context, opts runtime.OpenDialogOptions) ([]string, error) {
	f.open = opts
	return f.paths, f.err
}

func (f *fakeBackend) OpenDirectory(_ context.Context, opts runtime.OpenDialogOptions) (string, error) {
	f.open = opts
	return f.path, f.err
}

func (f *fakeBackend) SaveFile(_ context.Context, opts runtime.SaveDialogOptions) (string, error) {
	f.save = opts
	return f.path, f.err
}

func (f *fakeBackend) Message(_ context.Context, opts runtime.MessageDialogOptions) (string, error) {
	f.message = opts
	return "Ok", f.err
}

type recordingScope struct{ allowed []string }

func (r *recordingScope) Allow(path string) error {
	r.allowed = append(r.allowed, path)
	return nil
}

func newPlugin(t *testing.T, b Backend, s Scoper) *Plugin {
	t.Helper()
	p := NewWithBackend(b, s)
	require.NoError(t, p.Init(context.Background()))
	return p
}

func TestPlugin_RequiresInit(t *testing.T) {
	p := NewWithBackend(&fakeBackend{}, nil)
	_, err := p.Open(Options{})
	assert.Error(t, err)
	assert.Equal(t, "dialog", p.Name())
}

func TestPlugin_OpenGrantsScope(t *testing.T) {
	b := &fakeBackend{path: "/home/me/roster.csv"}
	scope := &recordingScope{}
	p := newPlugin(t, b, scope)

	path, err := p.Open(Options{
		Title:   "Import",
		Filters: []Filter{{Name: "Rosters", Pattern: "*.csv;*.txt"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "/home/me/roster.csv", path)
	assert.Equal(t, []string{"/home/me/roster.csv"}, scope.allowed)
	require.Len(t, b.open.Filters, 1)
	assert.Equal(t, "Rosters", b.open.Filters[0].DisplayName)
	assert.Equal(t, "Import", b.open.Title)
}

func TestPlugin_CancelledDialog(t *testing.T) {
	scope := &recordingScope{}
	p := newPlugin(t, &fakeBackend{}, scope)

	path, err := p.Save(Options{DefaultFilename: "history.json"})
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Empty(t, scope.allowed)

	paths, err := p.OpenMultiple(Options{})
	require.NoError(t, err)
	assert.NotNil(t, paths)
	assert.Empty(t, paths)
}

func TestPlugin_SavePassesOptions(t *testing.T) {
	b := &fakeBackend{path: "/tmp/out.csv"}
	p := newPlugin(t, b, nil)

	_, err := p.Save(Options{Title: "Export", DefaultFilename: "participants.csv"})
	require.NoError(t, err)
	assert.Equal(t, "participants.csv", b.save.DefaultFilename)
	assert.True(t, b.save.CanCreateDirectories)
}

func TestPlugin_BackendError(t *testing.T) {
	boom := errors.New("no display")
	p := newPlugin(t, &fakeBackend{err: boom}, nil)

	_, err := p.SelectFolder("Pick")
	assert.ErrorIs(t, err, boom)
}

func TestPlugin_MessageKinds(t *testing.T) {
	b := &fakeBackend{}
	p := newPlugin(t, b, nil)

	cases := map[string]runtime.DialogType{
		"info":     runtime.InfoDialog,
		"warning":  runtime.WarningDialog,
		"error":    runtime.ErrorDialog,
		"question": runtime.QuestionDialog,
		"other":    runtime.InfoDialog,
	}
	for kind, want := range cases {
		button, err := p.Message(kind, "t", "m")
		require.NoError(t, err)
		assert.Equal(t, "Ok", button)
		assert.Equal(t, want, b.message.Type, kind)
	}
}
