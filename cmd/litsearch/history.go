package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litsearch/internal/history"
	"github.com/pdiddy/litsearch/internal/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, show, and delete past search runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		project, _ := cmd.Flags().GetString("project")
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.List(cmd.Context(), history.ListOptions{Project: project, Limit: limit})
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		fmt.Printf("%-36s  %-16s  %-12s  %-4s  %-7s  %s\n", "ID", "Created", "Project", "Kept", "Quality", "Query")
		fmt.Println(strings.Repeat("-", 110))
		for _, r := range runs {
			fmt.Printf("%-36s  %-16s  %-12s  %-4d  %-7.2f  %s\n",
				r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Project, r.Kept, r.QualityScore, r.Query)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Render a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if !validFormat(format) {
			return fmt.Errorf("unknown format %q", format)
		}
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return render(run.State, format, os.Stdout)
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <run-file>",
	Short: "Render a run saved with search --output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if !validFormat(format) {
			return fmt.Errorf("unknown format %q", format)
		}
		rf, err := report.ReadRunFile(args[0])
		if err != nil {
			return err
		}
		return render(rf.State(), format, os.Stdout)
	},
}

func init() {
	historyListCmd.Flags().String("project", "", "only runs of this project")
	historyListCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 for all)")
	historyShowCmd.Flags().String("format", "table", "output format: table, json, csl, synthesis")
	renderCmd.Flags().String("format", "table", "output format: table, json, csl, synthesis")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd)
	rootCmd.AddCommand(historyCmd, renderCmd)
}

func openHistory() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.NewStore(cfg.History.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return store, nil
}
