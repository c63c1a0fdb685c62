// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litsearch CLI.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litsearch/internal/secrets"
	"github.com/pdiddy/litsearch/internal/sources"
	"github.com/pdiddy/litsearch/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const keyGoogle = "google-api-key"

// secretEnv maps secret file names to the environment variables used when
// the file is absent.
var secretEnv = map[string]string{
	keyGoogle:                  "GOOGLE_API_KEY",
	sources.KeyPubMed:          "NCBI_API_KEY",
	sources.KeyScopus:          "SCOPUS_API_KEY",
	sources.KeySemanticScholar: "SEMANTIC_SCHOLAR_API_KEY",
	sources.KeyOpenAlexEmail:   "OPENALEX_EMAIL",
}

// loadedSecrets holds API keys loaded from .secrets/ and the environment
// at startup.
var loadedSecrets map[string]string

// logger is the process logger; it writes to stderr.
var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

var rootCmd = &cobra.Command{
	Use:   "litsearch",
	Short: "Multi-source academic literature search",
	Long: `litsearch searches PubMed, Scopus, Semantic Scholar, and OpenAlex in
parallel, merges and deduplicates the results, scores each article for
relevance with a language model, refines the search when too few articles
pass, and writes a short literature synthesis.

Runs are kept in a local SQLite history and can be listed and reopened.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		// A missing .env file is normal.
		_ = godotenv.Load()

		creds, err := secrets.Resolve(".secrets/", secretEnv)
		if err != nil {
			return err
		}
		loadedSecrets = creds.Values
		if verbose && len(creds.Values) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", creds.Names())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litsearch.yaml or ~/.config/litsearch/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log every workflow step to stderr")
}

func initConfig() {
	def := types.DefaultConfig()
	viper.SetDefault("search.max_results", def.Search.MaxResults)
	viper.SetDefault("search.fetch_timeout", def.Search.FetchTimeout)
	viper.SetDefault("search.cache_ttl", def.Search.CacheTTL)
	viper.SetDefault("search.keep_threshold", def.Search.KeepThreshold)
	viper.SetDefault("http.timeout", def.HTTP.Timeout)
	viper.SetDefault("http.user_agent", def.HTTP.UserAgent)
	viper.SetDefault("ai.model", def.AI.Model)
	viper.SetDefault("ai.max_retries", def.AI.MaxRetries)
	viper.SetDefault("history.enabled", def.History.Enabled)
	viper.SetDefault("history.dir", def.History.Dir)

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litsearch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litsearch"))
		}
	}

	viper.SetEnvPrefix("LITSEARCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged file, env, and default settings.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = loadedSecrets[keyGoogle]
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
