package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.UI.MaxResults)
	assert.NotContains(t, cfg.SSH.KnownHostsPath, "~")
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[ui]
max_results = 7
case_sensitive = true

[ranking]
usage_weight_factor = 2.0
recency_half_life = "24h"

[index]
dedup_precedence = ["known_hosts", "ssh_config"]
debounce = "100ms"

[ssh]
known_hosts_path = "/etc/ssh/ssh_known_hosts"

[parsing]
parse_ssh_config = false
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.UI.MaxResults)
	assert.True(t, cfg.UI.CaseSensitive)
	assert.Equal(t, 2.0, cfg.Ranking.UsageWeightFactor)
	assert.Equal(t, 24*time.Hour, cfg.Ranking.RecencyHalfLife.Duration)
	assert.Equal(t, []string{"known_hosts", "ssh_config"}, cfg.Index.DedupPrecedence)
	assert.Equal(t, 100*time.Millisecond, cfg.Index.Debounce.Duration)
	assert.Equal(t, "/etc/ssh/ssh_known_hosts", cfg.SSH.KnownHostsPath)
	assert.False(t, cfg.Parsing.ParseSSHConfig)
	// Untouched keys keep their defaults
	assert.Equal(t, 64, cfg.Index.CacheSize)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("bad syntax", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("[ui\nmax_results = "), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("[index]\ndebounce = \"soon\"\n"), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("fails validation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("[ui]\nmax_results = 0\n"), 0644))

		_, err := Load(path)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := NewConfig(WithMaxResults(11), WithDebounce(time.Second), WithUsagePath("/var/lib/trident"))

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 11, loaded.UI.MaxResults)
	assert.Equal(t, time.Second, loaded.Index.Debounce.Duration)
	assert.Equal(t, "/var/lib/trident", loaded.Storage.UsagePath)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/.ssh/config", filepath.Join(home, ".ssh/config")},
		{"/etc/hosts", "/etc/hosts"},
		{"relative/path", "relative/path"},
		{"~user/file", "~user/file"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExpandPath(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
