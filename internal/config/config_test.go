package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelworld/internal/world"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	opts, err := cfg.WorldOptions()
	require.NoError(t, err)
	assert.Equal(t, world.EvictFarthest, opts.Eviction)
	assert.Equal(t, world.NeighborOpaque, opts.MissingNeighbor)
	assert.Equal(t, int64(512)<<20, opts.Budget.MemoryLimit)
	assert.False(t, cfg.Telemetry.Enabled, "трассировка выключена по умолчанию")
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
world:
  seed: 42
  max_chunks: 64
  eviction: lru
  missing_neighbor: transparent
storage:
  backend: mongo
  mongo:
    database: voxeltest
telemetry:
  enabled: true
  endpoint: otel:4318
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(42), cfg.World.GetSeed())
	assert.Equal(t, 8, cfg.World.RenderDistance, "незаданные поля берутся из значений по умолчанию")
	assert.Equal(t, "mongo", cfg.Storage.Backend)
	assert.Equal(t, "voxeltest", cfg.Storage.Mongo.Database)
	assert.Equal(t, "edits", cfg.Storage.Mongo.Collection)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "voxeld", cfg.Telemetry.ServiceName)
	assert.Equal(t, "otel:4318", cfg.Telemetry.Endpoint)

	opts, err := cfg.WorldOptions()
	require.NoError(t, err)
	assert.Equal(t, world.EvictLRU, opts.Eviction)
	assert.Equal(t, world.NeighborTransparent, opts.MissingNeighbor)
	assert.Equal(t, 64, opts.Budget.Capacity())
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("world:\n  render_distance: 3\n"), 0o644))
	t.Setenv("VOXEL_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.World.RenderDistance)
}

func TestLoadWithoutPath(t *testing.T) {
	t.Setenv("VOXEL_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("VOXEL_SEED", "1234")
	t.Setenv("VOXEL_DEBUG_PORT", "9099")

	cfg := Default()
	assert.Equal(t, int64(1234), cfg.World.GetSeed())
	assert.Equal(t, "127.0.0.1:9099", cfg.Server.GetDebugAddr())

	cfg.World.Seed = 7
	cfg.Server.DebugPort = 8000
	assert.Equal(t, int64(7), cfg.World.GetSeed(), "значение из конфига важнее env")
	assert.Equal(t, 8000, cfg.Server.GetDebugPort())
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"budget too small", func(c *Config) { c.World.MemoryLimitMB = 0; c.World.MaxChunks = 0 }, world.ErrBudgetTooSmall},
		{"bad eviction", func(c *Config) { c.World.Eviction = "random" }, nil},
		{"bad neighbor", func(c *Config) { c.World.MissingNeighbor = "maybe" }, nil},
		{"bad storage", func(c *Config) { c.Storage.Backend = "mysql" }, nil},
		{"telemetry without name", func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.ServiceName = "" }, nil},
		{"bad feed", func(c *Config) { c.EditFeed.Backend = "kafka" }, nil},
		{"zero tick", func(c *Config) { c.World.TickMs = 0 }, nil},
		{"negative radius", func(c *Config) { c.World.RenderDistance = -1 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}
