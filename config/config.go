// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/trident/match"
)

// Config is the complete engine configuration. It maps one to one onto
// the TOML file.
type Config struct {
	UI       UIConfig       `toml:"ui"`
	Ranking  RankingConfig  `toml:"ranking"`
	Matching MatchingConfig `toml:"matching"`
	Index    IndexConfig    `toml:"index"`
	SSH      SSHConfig      `toml:"ssh"`
	Parsing  ParsingConfig  `toml:"parsing"`
	Storage  StorageConfig  `toml:"storage"`
}

// UIConfig controls how results are shaped for the UI collaborator.
type UIConfig struct {
	// MaxResults caps the number of results per query.
	// Default: 20
	MaxResults int `toml:"max_results"`

	// CaseSensitive matches against original casing instead of folded names.
	// Default: false
	CaseSensitive bool `toml:"case_sensitive"`
}

// RankingConfig tunes how usage history modifies fuzzy scores.
type RankingConfig struct {
	// UsageWeightFactor scales the normalized usage multiplier.
	// 0 disables usage influence.
	UsageWeightFactor float64 `toml:"usage_weight_factor"`

	// RecencyMax is the bonus for an entry launched just now.
	RecencyMax float64 `toml:"recency_max"`

	// RecencyHalfLife is the age at which the bonus halves.
	RecencyHalfLife Duration `toml:"recency_half_life"`

	// RecencyHorizon is the age past which no bonus applies.
	RecencyHorizon Duration `toml:"recency_horizon"`
}

// MatchingConfig holds the fuzzy scoring constants.
type MatchingConfig struct {
	Base       float64 `toml:"base"`
	Contiguity float64 `toml:"contiguity"`
	Boundary   float64 `toml:"boundary"`
	Exact      float64 `toml:"exact"`
	Gap        float64 `toml:"gap"`
	Leading    float64 `toml:"leading"`
	LeadingCap float64 `toml:"leading_cap"`
}

// IndexConfig controls index building and refresh.
type IndexConfig struct {
	// DedupPrecedence orders sources from most to least trusted when two
	// sources produce the same name.
	DedupPrecedence []string `toml:"dedup_precedence"`

	// Debounce is the quiet period after a change notification before a
	// rebuild starts.
	Debounce Duration `toml:"debounce"`

	// CacheSize is the number of distinct queries kept in the result cache.
	CacheSize int `toml:"cache_size"`

	// LatencyBudget is the query time past which a warning is logged.
	LatencyBudget Duration `toml:"latency_budget"`

	// PoolSize is the number of sources loaded concurrently.
	// 0 selects runtime.NumCPU() / 2.
	PoolSize int `toml:"pool_size"`
}

// SSHConfig locates the ssh files used as host sources.
type SSHConfig struct {
	KnownHostsPath string `toml:"known_hosts_path"`
	ConfigPath     string `toml:"config_path"`
}

// ParsingConfig enables and tunes the host sources.
type ParsingConfig struct {
	ParseKnownHosts bool `toml:"parse_known_hosts"`
	ParseSSHConfig  bool `toml:"parse_ssh_config"`
	SkipHashedHosts bool `toml:"skip_hashed_hosts"`
}

// StorageConfig locates the usage history database.
type StorageConfig struct {
	// UsagePath is the badger directory. Empty keeps history in memory only.
	UsagePath string `toml:"usage_path"`
}

// Weights converts the matching section into matcher weights.
func (m MatchingConfig) Weights() match.Weights {
	return match.Weights{
		Base:       m.Base,
		Contiguity: m.Contiguity,
		Boundary:   m.Boundary,
		Exact:      m.Exact,
		Gap:        m.Gap,
		Leading:    m.Leading,
		LeadingCap: m.LeadingCap,
	}
}

// Option is a functional option for configuring a Config.
type Option func(*Config)

// WithMaxResults sets the per-query result cap.
func WithMaxResults(n int) Option {
	return func(c *Config) {
		c.UI.MaxResults = n
	}
}

// WithCaseSensitive toggles case-sensitive matching.
func WithCaseSensitive(on bool) Option {
	return func(c *Config) {
		c.UI.CaseSensitive = on
	}
}

// WithUsageWeightFactor sets the usage multiplier weight.
func WithUsageWeightFactor(f float64) Option {
	return func(c *Config) {
		c.Ranking.UsageWeightFactor = f
	}
}

// WithDedupPrecedence sets the source precedence order.
func WithDedupPrecedence(sources ...string) Option {
	return func(c *Config) {
		c.Index.DedupPrecedence = sources
	}
}

// WithDebounce sets the rebuild debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *Config) {
		c.Index.Debounce = Duration{d}
	}
}

// WithCacheSize sets the query cache capacity.
func WithCacheSize(n int) Option {
	return func(c *Config) {
		c.Index.CacheSize = n
	}
}

// WithKnownHostsPath sets the known_hosts location.
func WithKnownHostsPath(path string) Option {
	return func(c *Config) {
		c.SSH.KnownHostsPath = path
	}
}

// WithSSHConfigPath sets the ssh_config location.
func WithSSHConfigPath(path string) Option {
	return func(c *Config) {
		c.SSH.ConfigPath = path
	}
}

// WithUsagePath sets the usage database directory.
func WithUsagePath(path string) Option {
	return func(c *Config) {
		c.Storage.UsagePath = path
	}
}

// WithSources enables or disables the two file sources.
func WithSources(knownHosts, sshConfig bool) Option {
	return func(c *Config) {
		c.Parsing.ParseKnownHosts = knownHosts
		c.Parsing.ParseSSHConfig = sshConfig
	}
}

// DefaultConfig returns a Config with the stock settings: both ssh sources
// enabled, ssh_config outranking known_hosts, and history under the user's
// data directory.
func DefaultConfig() *Config {
	return &Config{
		UI: UIConfig{
			MaxResults:    20,
			CaseSensitive: false,
		},
		Ranking: RankingConfig{
			UsageWeightFactor: 0.5,
			RecencyMax:        2.0,
			RecencyHalfLife:   Duration{72 * time.Hour},
			RecencyHorizon:    Duration{30 * 24 * time.Hour},
		},
		Matching: MatchingConfig{
			Base:       1.0,
			Contiguity: 1.0,
			Boundary:   3.0,
			Exact:      10000.0,
			Gap:        0.25,
			Leading:    0.1,
			LeadingCap: 2.0,
		},
		Index: IndexConfig{
			DedupPrecedence: []string{"ssh_config", "known_hosts"},
			Debounce:        Duration{250 * time.Millisecond},
			CacheSize:       64,
			LatencyBudget:   Duration{50 * time.Millisecond},
		},
		SSH: SSHConfig{
			KnownHostsPath: "~/.ssh/known_hosts",
			ConfigPath:     "~/.ssh/config",
		},
		Parsing: ParsingConfig{
			ParseKnownHosts: true,
			ParseSSHConfig:  true,
			SkipHashedHosts: true,
		},
		Storage: StorageConfig{
			UsagePath: "~/.local/share/trident/usage",
		},
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithMaxResults(10),
//	    WithKnownHostsPath("/etc/ssh/ssh_known_hosts"),
//	)
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is usable.
// A result cap above 100 is allowed but logged.
func (c *Config) Validate() error {
	if c.UI.MaxResults <= 0 {
		return fmt.Errorf("%w: max_results must be greater than 0", ErrInvalidConfig)
	}
	if c.UI.MaxResults > 100 {
		slog.Warn("max_results is very large, this may impact performance", "max_results", c.UI.MaxResults)
	}
	if !c.Parsing.ParseKnownHosts && !c.Parsing.ParseSSHConfig {
		return fmt.Errorf("%w: at least one of parse_known_hosts or parse_ssh_config must be enabled", ErrInvalidConfig)
	}
	if c.Parsing.ParseKnownHosts && c.SSH.KnownHostsPath == "" {
		return fmt.Errorf("%w: known_hosts_path is required when parse_known_hosts is enabled", ErrInvalidConfig)
	}
	if c.Parsing.ParseSSHConfig && c.SSH.ConfigPath == "" {
		return fmt.Errorf("%w: config_path is required when parse_ssh_config is enabled", ErrInvalidConfig)
	}
	if c.Ranking.UsageWeightFactor < 0 {
		return fmt.Errorf("%w: usage_weight_factor cannot be negative", ErrInvalidConfig)
	}
	if c.Ranking.RecencyMax < 0 {
		return fmt.Errorf("%w: recency_max cannot be negative", ErrInvalidConfig)
	}
	if c.Ranking.RecencyMax > 0 && c.Ranking.RecencyHalfLife.Duration <= 0 {
		return fmt.Errorf("%w: recency_half_life must be positive", ErrInvalidConfig)
	}
	if err := c.Matching.Weights().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Index.Debounce.Duration <= 0 {
		return fmt.Errorf("%w: debounce must be positive", ErrInvalidConfig)
	}
	if c.Index.CacheSize <= 0 {
		return fmt.Errorf("%w: cache_size must be greater than 0", ErrInvalidConfig)
	}
	if c.Index.PoolSize < 0 {
		return fmt.Errorf("%w: pool_size cannot be negative", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Index.DedupPrecedence))
	for _, s := range c.Index.DedupPrecedence {
		if seen[s] {
			return fmt.Errorf("%w: source %q listed twice in dedup_precedence", ErrInvalidConfig, s)
		}
		seen[s] = true
	}
	return nil
}
