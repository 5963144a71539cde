package trident

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/trident/config"
	"github.com/poiesic/trident/core"
	"github.com/poiesic/trident/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSSHConfig = `
Host bastion
    HostName bastion.example.com
    User ops

Host db-primary db-replica
    HostName 10.0.0.10
`

func writeSSHConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func testConfig(t *testing.T, sshConfigPath string) *config.Config {
	t.Helper()
	return config.NewConfig(
		config.WithSources(false, true),
		config.WithSSHConfigPath(sshConfigPath),
		config.WithUsagePath(filepath.Join(t.TempDir(), "usage")),
		config.WithDebounce(20*time.Millisecond),
	)
}

func resultNames(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Name
	}
	return out
}

func TestNewEngine(t *testing.T) {
	t.Run("create new engine", func(t *testing.T) {
		cfg := testConfig(t, writeSSHConfig(t, t.TempDir(), testSSHConfig))
		eng, err := NewEngine(cfg)
		require.NoError(t, err)
		require.NotNil(t, eng)
		defer eng.Close()

		assert.NotNil(t, eng.backend)
		assert.NotNil(t, eng.logger)
		assert.Len(t, eng.sources, 1)
		assert.Nil(t, eng.Snapshot())
		assert.Empty(t, eng.Query(""))
	})

	t.Run("invalid configuration", func(t *testing.T) {
		cfg := config.NewConfig(config.WithMaxResults(0))
		eng, err := NewEngine(cfg)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
		assert.Nil(t, eng)
	})

	t.Run("unusable usage path keeps history in memory", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		cfg := testConfig(t, writeSSHConfig(t, t.TempDir(), testSSHConfig))
		cfg.Storage.UsagePath = tmpFile
		eng, err := NewEngine(cfg)
		require.NoError(t, err)
		defer eng.Close()
		assert.True(t, eng.Degraded())

		require.NoError(t, eng.Reload(context.Background()))
		require.NoError(t, eng.RecordConnection("db-replica"))
		assert.Equal(t, "db-replica", eng.Query("db")[0].Name)
		require.Len(t, eng.History(), 1)
	})

	t.Run("caller config is not modified", func(t *testing.T) {
		cfg := testConfig(t, writeSSHConfig(t, t.TempDir(), testSSHConfig))
		cfg.Storage.UsagePath = ""
		cfg.SSH.KnownHostsPath = "~/.ssh/known_hosts"
		eng, err := NewEngine(cfg)
		require.NoError(t, err)
		defer eng.Close()
		assert.Equal(t, "~/.ssh/known_hosts", cfg.SSH.KnownHostsPath)
	})
}

func TestEngine_StartAndQuery(t *testing.T) {
	cfg := testConfig(t, writeSSHConfig(t, t.TempDir(), testSSHConfig))
	eng, err := NewEngine(cfg)
	require.NoError(t, err)
	defer eng.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, eng.Start(ctx))
	assert.ErrorIs(t, eng.Start(ctx), ErrAlreadyStarted)

	assert.ElementsMatch(t, []string{"bastion", "db-primary", "db-replica"}, resultNames(eng.Query("")))

	got := eng.Query("bast")
	require.Len(t, got, 1)
	assert.Equal(t, "ssh bastion", got[0].ConnectionString)
	assert.Equal(t, []core.Span{{Start: 0, End: 4}}, got[0].Highlights)

	matches := eng.Matches("bastion")
	require.Len(t, matches, 1)
	assert.Equal(t, "ops", matches[0].Entry.User)

	st := eng.Stats()
	assert.Equal(t, uint64(1), st.Publishes)
}

func TestEngine_RecordConnection(t *testing.T) {
	cfg := testConfig(t, writeSSHConfig(t, t.TempDir(), testSSHConfig))
	eng, err := NewEngine(cfg)
	require.NoError(t, err)
	defer eng.Close()
	require.NoError(t, eng.Reload(context.Background()))

	t.Run("validation", func(t *testing.T) {
		assert.ErrorIs(t, eng.RecordConnection(""), core.ErrEmptyName)
		assert.ErrorIs(t, eng.RecordConnection("nope"), ErrUnknownHost)
	})

	t.Run("usage reorders results", func(t *testing.T) {
		assert.Equal(t, []string{"db-primary", "db-replica"}, resultNames(eng.Query("db")))
		require.NoError(t, eng.RecordConnection("db-replica"))
		assert.Equal(t, []string{"db-replica", "db-primary"}, resultNames(eng.Query("db")))

		hist := eng.History()
		require.Len(t, hist, 1)
		assert.Equal(t, "db-replica", hist[0].Name)
		assert.Equal(t, uint64(1), hist[0].Count)
		assert.False(t, eng.Degraded())
	})

	t.Run("forget", func(t *testing.T) {
		require.NoError(t, eng.Forget("db-replica"))
		assert.Empty(t, eng.History())
		assert.Equal(t, []string{"db-primary", "db-replica"}, resultNames(eng.Query("db")))
		assert.Error(t, eng.Forget("db-replica"))
	})
}

func TestEngine_UsageDirectoryLocked(t *testing.T) {
	cfg := testConfig(t, writeSSHConfig(t, t.TempDir(), testSSHConfig))

	first, err := NewEngine(cfg)
	require.NoError(t, err)
	defer first.Close()
	require.False(t, first.Degraded())

	second, err := NewEngine(cfg)
	require.NoError(t, err, "a held lock must not block startup")
	defer second.Close()
	assert.True(t, second.Degraded())

	require.NoError(t, second.Reload(context.Background()))
	require.NoError(t, second.RecordConnection("bastion"))
	assert.Equal(t, uint64(1), second.History()[0].Count)
	assert.Empty(t, first.History())
}

// launchOnScoring records a connection while a query is being ranked.
type launchOnScoring struct {
	eng  *Engine
	name string
}

func (m *launchOnScoring) Start(_ string)                         {}
func (m *launchOnScoring) CacheHit(_ []core.Match)                {}
func (m *launchOnScoring) Finish(_ []core.Match, _ time.Duration) {}

func (m *launchOnScoring) AfterScoring(_ int) {
	if m.name != "" {
		m.eng.RecordConnection(m.name)
		m.name = ""
	}
}

func TestEngine_LaunchDuringQueryIsNotCachedStale(t *testing.T) {
	cfg := testConfig(t, writeSSHConfig(t, t.TempDir(), testSSHConfig))
	eng, err := NewEngine(cfg)
	require.NoError(t, err)
	defer eng.Close()
	require.NoError(t, eng.Reload(context.Background()))

	before := eng.MatchesWithMonitor("db", &launchOnScoring{eng: eng, name: "db-replica"})
	require.Len(t, before, 2)
	assert.Equal(t, "db-primary", before[0].Entry.Name, "ranked before the launch")

	assert.Equal(t, []string{"db-replica", "db-primary"}, resultNames(eng.Query("db")))
}

func TestEngine_HistoryPersists(t *testing.T) {
	cfg := testConfig(t, writeSSHConfig(t, t.TempDir(), testSSHConfig))

	eng, err := NewEngine(cfg)
	require.NoError(t, err)
	require.NoError(t, eng.Reload(context.Background()))
	require.NoError(t, eng.RecordConnection("bastion"))
	require.NoError(t, eng.RecordConnection("bastion"))
	require.NoError(t, eng.Close())

	eng, err = NewEngine(cfg)
	require.NoError(t, err)
	defer eng.Close()

	hist := eng.History()
	require.Len(t, hist, 1)
	assert.Equal(t, "bastion", hist[0].Name)
	assert.Equal(t, uint64(2), hist[0].Count)
}

func TestEngine_WatchRebuilds(t *testing.T) {
	dir := t.TempDir()
	path := writeSSHConfig(t, dir, testSSHConfig)
	eng, err := NewEngine(testConfig(t, path), WithInMemoryUsage())
	require.NoError(t, err)
	defer eng.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, eng.Start(ctx))
	assert.Empty(t, eng.Query("cache"))

	writeSSHConfig(t, dir, testSSHConfig+"\nHost cache-01\n    HostName 10.0.0.20\n")

	require.Eventually(t, func() bool {
		return len(eng.Query("cache")) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestEngine_ReloadRemovesEntry(t *testing.T) {
	dir := t.TempDir()
	path := writeSSHConfig(t, dir, testSSHConfig)
	eng, err := NewEngine(testConfig(t, path), WithInMemoryUsage())
	require.NoError(t, err)
	defer eng.Close()
	require.NoError(t, eng.Reload(context.Background()))

	first := eng.Query("db")
	assert.Equal(t, first, eng.Query("db"))
	assert.Contains(t, resultNames(first), "db-replica")

	writeSSHConfig(t, dir, "Host db-primary\n")
	require.NoError(t, eng.Reload(context.Background()))
	assert.Equal(t, []string{"db-primary"}, resultNames(eng.Query("db")))
}

func TestEngine_SourcePrecedence(t *testing.T) {
	known := &source.Static{SourceName: core.SourceKnownHosts, Entries: []core.HostEntry{
		{Name: "db", ConnectionTarget: "ssh db.example.com"},
	}}
	conf := &source.Static{SourceName: core.SourceSSHConfig, Entries: []core.HostEntry{
		{Name: "db", ConnectionTarget: "ssh db"},
	}}
	cfg := testConfig(t, "unused")

	eng, err := NewEngine(cfg, WithSources(known, conf), WithInMemoryUsage())
	require.NoError(t, err)
	defer eng.Close()
	require.NoError(t, eng.Start(context.Background()))

	got := eng.Query("db")
	require.Len(t, got, 1)
	assert.Equal(t, "ssh db", got[0].ConnectionString)
}

func TestEngine_FailedSourcesKeepEngineUsable(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing"))
	eng, err := NewEngine(cfg, WithInMemoryUsage())
	require.NoError(t, err)
	defer eng.Close()

	err = eng.Start(context.Background())
	var rerr *core.RebuildError
	assert.ErrorAs(t, err, &rerr)
	assert.Empty(t, eng.Query("anything"))
	assert.Equal(t, uint64(1), eng.Stats().Failures)
}

func TestEngine_Close(t *testing.T) {
	cfg := testConfig(t, writeSSHConfig(t, t.TempDir(), testSSHConfig))
	eng, err := NewEngine(cfg)
	require.NoError(t, err)
	require.NoError(t, eng.Start(context.Background()))

	assert.NoError(t, eng.Close())
	assert.NoError(t, eng.Close())
	assert.ErrorIs(t, eng.Start(context.Background()), ErrEngineClosed)
}
