package tfconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFillsDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tfd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
grpc:
  enabled: true
  addr: ":9000"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.GRPC.Addr)
	assert.Equal(t, 10*time.Second, cfg.Graph.CacheTime)
	assert.Equal(t, 1000, cfg.Graph.MaxGraphDepth)
}

func TestLoadParsesStaticFrames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tfd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
static_frames:
  - child: lidar
    parent: base_link
    translation: [1, 0, 0]
    rotation: [1, 0, 0, 0]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Static, 1)
	assert.Equal(t, "lidar", cfg.Static[0].Child)
	assert.Equal(t, "base_link", cfg.Static[0].Parent)
	assert.Equal(t, [3]float64{1, 0, 0}, cfg.Static[0].Translation)
}

func TestLoadMissingFileErrors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
