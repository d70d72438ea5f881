package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "mesh", cfg.DefaultTopology)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 60*time.Second, cfg.PongWait)
	assert.Equal(t, int64(65536), cfg.ReadLimit)
	assert.Equal(t, "kick", cfg.SendPolicy)
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.ICEServers[0].URLs)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	body := `
port: 9090
mode: debug
default_topology: broadcast
send_policy: tolerant
heartbeat_timeout: 30s
allowed_origins:
  - https://example.org
ice_servers:
  - urls: ["turn:turn.example.org:3478"]
    username: alice
    credential: secret
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, "broadcast", cfg.DefaultTopology)
	assert.Equal(t, "tolerant", cfg.SendPolicy)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatTimeout)
	assert.Equal(t, []string{"https://example.org"}, cfg.AllowedOrigins)
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, "alice", cfg.ICEServers[0].Username)
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("RENDEZVOUS_PORT", "7070")
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Port:            5000,
			DefaultTopology: "mesh",
			PingPeriod:      time.Second,
			PongWait:        2 * time.Second,
			SendBuffer:      1,
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.DefaultTopology = "star"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidTopology)

	cfg = base()
	cfg.Port = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidPort)

	cfg = base()
	cfg.SendPolicy = "ignore"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidPolicy)

	cfg = base()
	cfg.PingPeriod = 3 * time.Second
	assert.Error(t, cfg.Validate())
}
