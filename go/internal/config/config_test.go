package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Rules.KicksPerSide)
	assert.Equal(t, 10*time.Second, cfg.Registry.PairingTimeout)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	doc := `
server:
  addr: ":9000"
  max_conns: 64
registry:
  pairing_timeout: 3s
rules:
  kicks_per_side: 3
  save_tolerance: 1
robot:
  min_think: 100ms
  max_think: 200ms
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 64, cfg.Server.MaxConns)
	assert.Equal(t, 3*time.Second, cfg.Registry.PairingTimeout)
	assert.Equal(t, 3, cfg.Rules.KicksPerSide)
	assert.Equal(t, 1, cfg.Rules.SaveTolerance)
	assert.Equal(t, 100*time.Millisecond, cfg.Robot.MinThink)
	// untouched keys keep their defaults
	assert.Equal(t, 1024, cfg.Registry.MaxRooms)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0o644))

	t.Setenv("ARENA_ADDR", ":7777")
	t.Setenv("ARENA_KICKS_PER_SIDE", "7")
	t.Setenv("ARENA_ROBOT_MIN_THINK", "50ms")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, 7, cfg.Rules.KicksPerSide)
	assert.Equal(t, 50*time.Millisecond, cfg.Robot.MinThink)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero kicks", map[string]string{"ARENA_KICKS_PER_SIDE": "0"}},
		{"negative tolerance", map[string]string{"ARENA_SAVE_TOLERANCE": "-1"}},
		{"zero rooms", map[string]string{"ARENA_MAX_ROOMS": "0"}},
		{"inverted think bounds", map[string]string{"ARENA_ROBOT_MIN_THINK": "3s", "ARENA_ROBOT_MAX_THINK": "1s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestRoomConfigCarriesSections(t *testing.T) {
	cfg := Default()
	cfg.Registry.MaxRooms = 9
	cfg.Rules.SaveTolerance = 2
	cfg.Robot.MaxThink = 4 * time.Second

	rc := cfg.RoomConfig()
	assert.Equal(t, 9, rc.MaxRooms)
	assert.Equal(t, 2, rc.Rules.SaveTolerance)
	assert.Equal(t, 4*time.Second, rc.RobotMaxThink)
}
