package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	h := NewHandler(&GodotenvProvider{})
	cfg, err := h.Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kfs.env")
	content := "KFS_DISK_IMAGE=/tmp/disk.img\n" +
		"KFS_DISK_BLOCKS=2048\n" +
		"KFS_BACKEND=Goose\n" +
		"KFS_DEBUG=5\n" +
		"KFS_FORMAT=true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	h := NewHandler(&GodotenvProvider{})
	cfg, err := h.Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/disk.img", cfg.DiskImage)
	require.Equal(t, uint64(2048), cfg.DiskBlocks)
	require.Equal(t, uint64(32), cfg.InodeBlocks)
	require.Equal(t, BackendGoose, cfg.Backend)
	require.Equal(t, uint64(5), cfg.Debug)
	require.True(t, cfg.Format)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	h := NewHandler(&GodotenvProvider{})
	_, err := h.Load(filepath.Join(t.TempDir(), "nope.env"))
	require.Error(t, err)
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	h := NewHandler(&GodotenvProvider{})
	_, err := h.Parse(map[string]string{KeyBackend: "tape"})
	require.ErrorIs(t, err, ErrInvalidBackend)
	_, err = h.Parse(map[string]string{KeyDiskBlocks: "-3"})
	require.ErrorIs(t, err, ErrInvalidValue)
	_, err = h.Parse(map[string]string{KeyFormat: "maybe"})
	require.ErrorIs(t, err, ErrInvalidValue)
}
