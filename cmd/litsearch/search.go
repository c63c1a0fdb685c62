// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/pdiddy/litsearch/internal/cache"
	"github.com/pdiddy/litsearch/internal/fetch"
	"github.com/pdiddy/litsearch/internal/filter"
	"github.com/pdiddy/litsearch/internal/history"
	"github.com/pdiddy/litsearch/internal/oracle"
	"github.com/pdiddy/litsearch/internal/report"
	"github.com/pdiddy/litsearch/internal/sources"
	"github.com/pdiddy/litsearch/internal/synthesis"
	"github.com/pdiddy/litsearch/internal/workflow"
	"github.com/pdiddy/litsearch/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the literature and synthesize the relevant papers",
	Long: `Search runs one query through the full workflow: analysis, source
planning, per-source query optimization, parallel fetching, deduplication,
relevance scoring, up to two refinement passes, and synthesis.

Without a language model API key every model-backed step falls back to its
default and all fetched articles are kept.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("max-results", 0, "number of relevant articles wanted (default 10)")
	searchCmd.Flags().Int("from", 0, "earliest publication year")
	searchCmd.Flags().Int("to", 0, "latest publication year")
	searchCmd.Flags().StringSlice("sources", nil, "sources to query (pubmed, scopus, semantic_scholar, openalex)")
	searchCmd.Flags().String("format", "table", "output format: table, json, csl, synthesis")
	searchCmd.Flags().String("output", "", "also save the run to this YAML file")
	searchCmd.Flags().String("project", "", "project name recorded in the history")
	searchCmd.Flags().Bool("no-history", false, "do not record this run in the history")
	searchCmd.Flags().Bool("quiet", false, "suppress step progress on stderr")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if !validFormat(format) {
		return fmt.Errorf("unknown format %q (want table, json, csl, or synthesis)", format)
	}

	prefs := cfg.Search.Preferences()
	if n, _ := cmd.Flags().GetInt("max-results"); n > 0 {
		prefs.MaxResults = n
	}
	if y, _ := cmd.Flags().GetInt("from"); y > 0 {
		prefs.YearStart = y
	}
	if y, _ := cmd.Flags().GetInt("to"); y > 0 {
		prefs.YearEnd = y
	}
	if s, _ := cmd.Flags().GetStringSlice("sources"); len(s) > 0 {
		prefs.Sources = s
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	engine, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}

	var opts []workflow.RunOption
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		opts = append(opts, workflow.WithProgress(progressPrinter(os.Stderr)))
	}

	query := strings.Join(args, " ")
	state := engine.RunSearch(ctx, query, prefs, opts...)

	if err := render(state, format, os.Stdout); err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		if err := report.WriteRunFile(path, state); err != nil {
			return fmt.Errorf("writing run file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Saved run to %s\n", path)
	}

	noHistory, _ := cmd.Flags().GetBool("no-history")
	if cfg.History.Enabled && !noHistory {
		project, _ := cmd.Flags().GetString("project")
		if err := saveHistory(ctx, cfg.History.Dir, project, state); err != nil {
			return err
		}
	}
	return nil
}

// buildEngine wires the cache, adapters, and model-backed oracles.
func buildEngine(ctx context.Context, cfg types.Config) (*workflow.Engine, error) {
	client := sources.NewClient(cfg.HTTP)
	orch := fetch.New(cache.New(cfg.Search.CacheTTL), cfg.Search.FetchTimeout, logger,
		sources.New(client, loadedSecrets)...)

	engine := &workflow.Engine{
		Fetcher: orch,
		Filter:  &filter.Filter{Threshold: cfg.Search.KeepThreshold, Logger: logger},
		Gate:    &synthesis.Gate{Threshold: cfg.Search.KeepThreshold, Logger: logger},
		Logger:  logger,
	}

	if cfg.AI.APIKey == "" {
		fmt.Fprintln(os.Stderr, "No model API key configured; using fallbacks for every model-backed step.")
		return engine, nil
	}

	model, err := googleai.New(ctx, googleai.WithAPIKey(cfg.AI.APIKey), googleai.WithDefaultModel(cfg.AI.Model))
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}
	llm := oracle.New(model, cfg.AI.MaxRetries, logger)
	engine.Analyzer = llm
	engine.Planner = llm
	engine.Optimizer = llm
	engine.Advisor = llm
	engine.Filter.Scorer = llm
	engine.Gate.Synthesizer = llm
	return engine, nil
}

// progressPrinter reports each finished step on one line.
func progressPrinter(w io.Writer) workflow.ProgressFunc {
	return func(step workflow.Step, state *types.SearchState) {
		switch step {
		case workflow.StepExecute:
			fmt.Fprintf(w, "  %-10s fetched %d records from %d source(s)\n", step, report.RawCount(state), len(state.SearchResults))
		case workflow.StepEvaluate:
			fmt.Fprintf(w, "  %-10s kept %d of %d (%.0f%% pass rate)\n", step, len(state.Filtered), len(state.Deduplicated), state.FilterStats.PassRate*100)
		case workflow.StepRefine:
			fmt.Fprintf(w, "  %-10s pass %d: %s\n", step, state.RefinementCount, state.RefinementReason)
		default:
			fmt.Fprintf(w, "  %-10s done\n", step)
		}
	}
}

func validFormat(f string) bool {
	switch f {
	case "table", "json", "csl", "synthesis":
		return true
	}
	return false
}

func render(state *types.SearchState, format string, w io.Writer) error {
	switch format {
	case "json":
		return report.FormatJSON(state, w)
	case "csl":
		return report.FormatCSL(state.FinalResults, w)
	case "synthesis":
		report.FormatSynthesis(state, w)
	default:
		report.FormatTable(state, w)
		if state.Synthesis != "" {
			fmt.Fprintln(w)
			report.FormatSynthesis(state, w)
		}
	}
	return nil
}

func saveHistory(ctx context.Context, dir, project string, state *types.SearchState) error {
	store, err := history.NewStore(dir)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	id, err := store.Save(ctx, project, state)
	if err != nil {
		return fmt.Errorf("saving run to history: %w", err)
	}
	logger.Info("run saved", "id", id, "dir", dir)
	return nil
}
