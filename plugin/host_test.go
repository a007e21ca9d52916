package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePlugin struct {
	name    string
	initErr error
	inited  context.Context
	closed  *[]string
}

func (f *fakePlugin) Name() string { return f.name }

func (f *fakePlugin) Init(ctx context.Context) error {
	if f.initErr != nil {
		return f.initErr
	}
	f.inited = ctx
	return nil
}

func (f *fakePlugin) Close() error {
	if f.closed != nil {
		*f.closed = append(*f.closed, f.name)
	}
	return nil
}

type key struct{}

func TestHost_RegisterInitialisesWithHostContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), key{}, "runtime")
	h := NewHost(ctx)

	p := &fakePlugin{name: "fs"}
	require.NoError(t, h.Register(p))

	require.NotNil(t, p.inited)
	assert.Equal(t, "runtime", p.inited.Value(key{}))

	got, ok := h.Get("fs")
	require.True(t, ok)
	assert.Same(t, p, got)
}

func TestHost_KeepsRegistrationOrder(t *testing.T) {
	h := NewHost(context.Background())
	for _, name := range []string{"log", "fs", "dialog"} {
		require.NoError(t, h.Register(&fakePlugin{name: name}))
	}
	assert.Equal(t, []string{"log", "fs", "dialog"}, h.Names())
}

func TestHost_RejectsDuplicateNames(t *testing.T) {
	h := NewHost(context.Background())
	require.NoError(t, h.Register(&fakePlugin{name: "fs"}))

	err := h.Register(&fakePlugin{name: "fs"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Equal(t, []string{"fs"}, h.Names())
}

func TestHost_FailedInitIsNotRecorded(t *testing.T) {
	h := NewHost(context.Background())
	boom := errors.New("boom")

	err := h.Register(&fakePlugin{name: "dialog", initErr: boom})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "dialog")

	_, ok := h.Get("dialog")
	assert.False(t, ok)
	assert.Empty(t, h.Names())
}

func TestHost_ShutdownClosesInReverseOrder(t *testing.T) {
	h := NewHost(context.Background())
	var closed []string
	for _, name := range []string{"log", "fs", "dialog"} {
		require.NoError(t, h.Register(&fakePlugin{name: name, closed: &closed}))
	}

	h.Shutdown()
	h.Shutdown()

	assert.Equal(t, []string{"dialog", "fs", "log"}, closed)
	assert.Empty(t, h.Names())
	assert.Error(t, h.Register(&fakePlugin{name: "late"}))
}
