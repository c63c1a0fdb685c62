// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by the source adapters.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litsearch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds the defaults for a search run and its execution limits.
type SearchConfig struct {
	// MaxResults is the requested number of relevant results (default 10).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// YearStart and YearEnd bound publication years; zero means unbounded.
	YearStart int `json:"year_start" yaml:"year_start" mapstructure:"year_start"`
	YearEnd   int `json:"year_end" yaml:"year_end" mapstructure:"year_end"`

	// Sources lists the preferred sources. Empty lets the planner choose.
	Sources []string `json:"sources" yaml:"sources" mapstructure:"sources"`

	// FetchTimeout is the aggregate deadline for one parallel fetch (default 60s).
	FetchTimeout time.Duration `json:"fetch_timeout" yaml:"fetch_timeout" mapstructure:"fetch_timeout"`

	// CacheTTL is how long fetched results stay reusable (default 30m).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`

	// KeepThreshold is the minimum relevance score to keep an article (default 7).
	KeepThreshold float64 `json:"keep_threshold" yaml:"keep_threshold" mapstructure:"keep_threshold"`
}

// AIConfig holds settings for the language model behind the oracles.
type AIConfig struct {
	// Model is the model identifier (e.g. "gemini-2.0-flash").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the model API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts for failed calls (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// HistoryConfig controls the local SQLite run history.
type HistoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Dir     string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// Config groups every setting the CLI reads from file, env, and flags.
type Config struct {
	Search  SearchConfig  `json:"search" yaml:"search" mapstructure:"search"`
	HTTP    HTTPConfig    `json:"http" yaml:"http" mapstructure:"http"`
	AI      AIConfig      `json:"ai" yaml:"ai" mapstructure:"ai"`
	History HistoryConfig `json:"history" yaml:"history" mapstructure:"history"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			MaxResults:    DefaultMaxResults,
			FetchTimeout:  60 * time.Second,
			CacheTTL:      30 * time.Minute,
			KeepThreshold: 7.0,
		},
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "litsearch/0.1",
		},
		AI: AIConfig{
			Model:      "gemini-2.0-flash",
			MaxRetries: 2,
		},
		History: HistoryConfig{
			Enabled: true,
			Dir:     "history",
		},
	}
}

// Preferences converts the search defaults into run preferences.
func (c SearchConfig) Preferences() Preferences {
	return Preferences{
		MaxResults: c.MaxResults,
		YearStart:  c.YearStart,
		YearEnd:    c.YearEnd,
		Sources:    append([]string(nil), c.Sources...),
	}
}
