package files

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlugin_ReadWriteInsideScope(t *testing.T) {
	root := t.TempDir()
	p := New(root)

	path := filepath.Join(root, "nested", "roster.txt")
	require.NoError(t, p.WriteTextFile(path, "张三\n李四,2\n"))

	got, err := p.ReadTextFile(path)
	require.NoError(t, err)
	assert.Equal(t, "张三\n李四,2\n", got)
	assert.True(t, p.Exists(path))
}

func TestPlugin_RejectsOutOfScope(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("x"), 0644))

	p := New(root)

	_, err := p.ReadTextFile(secret)
	assert.ErrorIs(t, err, ErrOutOfScope)

	err = p.WriteTextFile(filepath.Join(root, "..", filepath.Base(outside), "evil.txt"), "x")
	assert.ErrorIs(t, err, ErrOutOfScope)

	// existence of out-of-scope files is not revealed
	assert.False(t, p.Exists(secret))
}

func TestPlugin_AllowExtendsScope(t *testing.T) {
	root := t.TempDir()
	picked := filepath.Join(t.TempDir(), "export.csv")

	p := New(root)
	require.ErrorIs(t, p.WriteTextFile(picked, "a"), ErrOutOfScope)

	require.NoError(t, p.Scope().Allow(picked))
	require.NoError(t, p.WriteTextFile(picked, "a"))
	assert.Len(t, p.Scope().Roots(), 2)

	require.NoError(t, p.Scope().Allow(picked))
	assert.Len(t, p.Scope().Roots(), 2)
	assert.Error(t, p.Scope().Allow("  "))
}

func TestPlugin_ReadDirMkdirRemove(t *testing.T) {
	root := t.TempDir()
	p := New(root)

	dir := filepath.Join(root, "exports")
	require.NoError(t, p.Mkdir(dir))
	require.NoError(t, p.WriteTextFile(filepath.Join(dir, "a.csv"), "abc"))

	entries, err := p.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.csv", entries[0].Name)
	assert.False(t, entries[0].IsDir)
	assert.EqualValues(t, 3, entries[0].Size)

	require.NoError(t, p.Remove(filepath.Join(dir, "a.csv")))
	assert.False(t, p.Exists(filepath.Join(dir, "a.csv")))
	assert.Error(t, p.Remove(root))
}

func TestPlugin_ReadTooLarge(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "big.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(MaxReadFileSize+1))
	require.NoError(t, f.Close())

	_, err = New(root).ReadTextFile(path)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestIsSubPath(t *testing.T) {
	base := filepath.FromSlash("/data/app")
	cases := map[string]bool{
		"/data/app":            true,
		"/data/app/x.txt":      true,
		"/data/app/../other":   false,
		"/data/application":    false,
		"/data/app/..hidden":   true,
		"/elsewhere/file.json": false,
	}
	for target, want := range cases {
		got := isSubPath(base, filepath.Clean(filepath.FromSlash(target)))
		assert.Equal(t, want, got, strings.TrimSpace(target))
	}
}

func TestNew_LogsRejectedRoot(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	root := t.TempDir()
	p := New("", root)

	assert.Equal(t, []string{root}, p.Scope().Roots())
	assert.Contains(t, buf.String(), "Failed to add")
}
