package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("pmd", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func TestParseDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "database_config.json")
	cfg, err := Parse(newFlagSet(), []string{"-db-config", missing})
	require.NoError(t, err)

	assert.Equal(t, "/etc/sonic/pmd/ports.yaml", cfg.PlatformFile)
	assert.Equal(t, ":50052", cfg.Addr)
	assert.False(t, cfg.NoGRPC)
	assert.False(t, cfg.TLSEnabled())
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	assert.Equal(t, 6, cfg.RedisDB)
	assert.Equal(t, "PMD_SIM", cfg.ControlChannel)
	assert.Empty(t, cfg.SimDir)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.DOMInterval)
	assert.Equal(t, 2*time.Second, cfg.ReadTimeout)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestParseFlags(t *testing.T) {
	cfg, err := Parse(newFlagSet(), []string{
		"-platform", "/tmp/ports.yaml",
		"-addr", ":9339",
		"-no-grpc",
		"-tls-cert", "/etc/pmd/server.crt",
		"-tls-key", "/etc/pmd/server.key",
		"-db-config", "/etc/pmd/database_config.json",
		"-redis-addr", "10.0.0.1:6380",
		"-redis-db", "2",
		"-control-channel", "SIM",
		"-sim-dir", "/tmp/sim",
		"-poll-interval", "250ms",
		"-dom-interval", "0",
		"-read-timeout", "500ms",
		"-metrics-addr", ":9100",
		"-shutdown-timeout", "3s",
	})
	require.NoError(t, err)

	assert.Equal(t, &Config{
		PlatformFile:    "/tmp/ports.yaml",
		Addr:            ":9339",
		NoGRPC:          true,
		TLSCertFile:     "/etc/pmd/server.crt",
		TLSKeyFile:      "/etc/pmd/server.key",
		DBConfigFile:    "/etc/pmd/database_config.json",
		RedisAddr:       "10.0.0.1:6380",
		RedisDB:         2,
		ControlChannel:  "SIM",
		SimDir:          "/tmp/sim",
		PollInterval:    250 * time.Millisecond,
		DOMInterval:     0,
		ReadTimeout:     500 * time.Millisecond,
		MetricsAddr:     ":9100",
		ShutdownTimeout: 3 * time.Second,
	}, cfg)
	assert.True(t, cfg.TLSEnabled())
}

func TestParseDBConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "database_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"INSTANCES": {"redis": {"hostname": "127.0.0.1", "port": 6380}},
		"DATABASES": {"STATE_DB": {"id": 16, "separator": "|", "instance": "redis"}}
	}`), 0o644))

	cfg, err := Parse(newFlagSet(), []string{"-db-config", path})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6380", cfg.RedisAddr)
	assert.Equal(t, 16, cfg.RedisDB)

	cfg, err = Parse(newFlagSet(), []string{"-db-config", path, "-redis-db", "3"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"DATABASES": {}}`), 0o644))
	_, err = Parse(newFlagSet(), []string{"-db-config", bad})
	assert.ErrorContains(t, err, "STATE_DB not found")
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"-poll-interval", "0"}, "poll-interval"},
		{[]string{"-read-timeout", "-1s"}, "read-timeout"},
		{[]string{"-dom-interval", "-1s"}, "dom-interval"},
		{[]string{"-redis-db", "-1"}, "redis-db"},
		{[]string{"-control-channel", ""}, "control-channel"},
		{[]string{"-tls-cert", "server.crt"}, "tls-key"},
		{[]string{"-bogus"}, "bogus"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, err := Parse(newFlagSet(), append([]string{"-db-config", ""}, tt.args...))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestPlatform(t *testing.T) {
	dir := t.TempDir()

	cfg := &Config{PlatformFile: filepath.Join(dir, "missing.yaml")}
	d, err := cfg.Platform()
	require.NoError(t, err)
	assert.Len(t, d.Ports, 54)

	path := filepath.Join(dir, "ports.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ports:\n  - name: Ethernet0\n    connector: SFP_PLUS\n"), 0o644))
	cfg.PlatformFile = path
	d, err = cfg.Platform()
	require.NoError(t, err)
	assert.Len(t, d.Ports, 1)

	require.NoError(t, os.WriteFile(path, []byte("ports: []\n"), 0o644))
	_, err = cfg.Platform()
	assert.Error(t, err)
}
