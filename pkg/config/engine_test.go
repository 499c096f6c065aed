package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/intercept/pkg/mockerr"
)

func TestParseEngineConfig(t *testing.T) {
	t.Setenv("IDLE", "250ms")
	cfg, err := ParseEngineConfig([]byte(`
log:
  level: debug
  format: json
idleTimeout: ${IDLE}
contentLength: true
nearMisses: 5
requestLogSize: 10
netConnect:
  disabled: true
  allow: ["localhost", "*.internal.test"]
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.IdleTimeout)
	assert.True(t, cfg.ContentLength)
	require.NotNil(t, cfg.NearMisses)
	assert.Equal(t, 5, *cfg.NearMisses)

	policy, err := cfg.NetConnectPolicy()
	require.NoError(t, err)
	assert.True(t, policy.Allows("localhost:8080"))
	assert.True(t, policy.Allows("db.internal.test:5432"))
	assert.False(t, policy.Allows("example.com:443"))
}

func TestParseEngineConfig_JSON(t *testing.T) {
	cfg, err := ParseEngineConfig([]byte(`{"allowUnmocked": true, "idleTimeout": "1s"}`))
	require.NoError(t, err)
	assert.True(t, cfg.AllowUnmocked)
	assert.Equal(t, time.Second, cfg.IdleTimeout)

	policy, err := cfg.NetConnectPolicy()
	require.NoError(t, err)
	assert.True(t, policy.Allows("anything.test:80"))
}

func TestParseEngineConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"unknown field", "idleTimeot: 1s", ErrInvalidYAML},
		{"bad duration", "idleTimeout: soon", ErrInvalidYAML},
		{"negative near misses", "nearMisses: -1", mockerr.ErrConfiguration},
		{"bad format", "log: {format: xml}", mockerr.ErrConfiguration},
		{"bad allow glob", "netConnect: {allow: ['[oops']}", mockerr.ErrConfiguration},
		{"empty", "", ErrEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEngineConfig([]byte(tt.input))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEngineConfig_NewEngine(t *testing.T) {
	var buf bytes.Buffer
	cfg := &EngineConfig{Log: LogConfig{Level: "debug", Format: "json"}, ContentLength: true}
	e := cfg.NewEngine(&buf)

	_, err := e.Scope("http://api.test").Get("/").Reply(200, "ok")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"level":"DEBUG"`)
	assert.NotNil(t, e.Requests())
}

func TestLoadEngineConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("idleTimeout: 2s\n"), 0o644))

	cfg, err := LoadEngineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.IdleTimeout)

	_, err = LoadEngineConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = LoadEngineConfig(dir)
	assert.Error(t, err)
}
