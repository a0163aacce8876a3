package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendDisk, cfg.Index.Backend)
	assert.Equal(t, 800, cfg.Chunker.Size)
	assert.Equal(t, 120, cfg.Chunker.OverlapRunes())
	assert.Equal(t, 50, cfg.Search.TopK)
	assert.Equal(t, 0.45, cfg.Search.Threshold)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.APIKeyEnv)
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "govpal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
index:
  backend: SQLite
embedder:
  base_url: http://localhost:11434/v1
  model: nomic-embed-text
search:
  threshold: 0.3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Index.Backend)
	assert.Equal(t, "./data/index", cfg.Index.Dir)
	assert.Equal(t, "nomic-embed-text", cfg.Embedder.Model)
	assert.Equal(t, 30, cfg.Embedder.TimeoutSecs)
	assert.Equal(t, 0.3, cfg.Search.Threshold)
	assert.Equal(t, 120, cfg.Chunker.OverlapRunes())
}

func TestLoad_ExplicitZeroOverlapIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "govpal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker:\n  overlap: 0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Chunker.Overlap)
	assert.Equal(t, 0, cfg.Chunker.OverlapRunes())
	assert.Equal(t, 800, cfg.Chunker.Size)
}

func TestLoad_SmallChunkSizeDropsDefaultOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "govpal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker:\n  size: 100\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Chunker.OverlapRunes())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvIndexDir, "/srv/index")
	t.Setenv(EnvStorageDir, "/srv/storage")
	t.Setenv(EnvListen, "127.0.0.1:9000")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/index", cfg.Index.Dir)
	assert.Equal(t, "/srv/storage", cfg.Storage.Dir)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"backend": "index:\n  backend: redis\n",
		"overlap": "chunker:\n  size: 100\n  overlap: 100\n",
		"yaml":    "index: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := defaultConfig()
	want.Index.Backend = BackendMemory
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
