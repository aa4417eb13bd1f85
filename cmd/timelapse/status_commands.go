package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wipash/northgrove-timelapse/internal/catalog"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the most recent run and its per-artifact outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := catalog.Open(cfg.Paths.CatalogPath)
			if err != nil {
				return fmt.Errorf("open run catalog: %w", err)
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), 1)
			if err != nil {
				return fmt.Errorf("read run history: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				if jsonOut {
					return writeJSON(cmd, nil)
				}
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}

			run := runs[0]
			if jsonOut {
				artifacts, err := store.Artifacts(cmd.Context(), run.ID)
				if err != nil {
					return fmt.Errorf("read run artifacts: %w", err)
				}
				return writeJSON(cmd, statusJSON(run, artifacts))
			}
			fmt.Fprintf(out, "Last run %s at %s (%s)\n",
				run.ID,
				run.StartedAt.Local().Format(time.RFC1123),
				run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
			fmt.Fprintf(out, "  built: %d  skipped: %d  evicted: %d  failed: %d\n",
				run.Built, run.Skipped, run.Evicted, run.Failed)
			if run.Err != "" {
				fmt.Fprintf(out, "  fatal: %s\n", run.Err)
			}

			artifacts, err := store.Artifacts(cmd.Context(), run.ID)
			if err != nil {
				return fmt.Errorf("read run artifacts: %w", err)
			}
			if len(artifacts) == 0 {
				return nil
			}

			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(artifacts))
			for _, a := range artifacts {
				rows = append(rows, []string{
					a.Key,
					colorizeOutcome(string(a.Outcome), colorize),
					a.Detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Key", "Outcome", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

type runJSON struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Built      int            `json:"built"`
	Skipped    int            `json:"skipped"`
	Evicted    int            `json:"evicted"`
	Failed     int            `json:"failed"`
	Error      string         `json:"error,omitempty"`
	Artifacts  []artifactJSON `json:"artifacts,omitempty"`
}

type artifactJSON struct {
	Key     string `json:"key"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

func statusJSON(run catalog.Summary, artifacts []catalog.Artifact) runJSON {
	doc := runJSON{
		ID:         run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Built:      run.Built,
		Skipped:    run.Skipped,
		Evicted:    run.Evicted,
		Failed:     run.Failed,
		Error:      run.Err,
	}
	for _, a := range artifacts {
		doc.Artifacts = append(doc.Artifacts, artifactJSON{
			Key:     a.Key,
			Outcome: string(a.Outcome),
			Detail:  a.Detail,
		})
	}
	return doc
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := catalog.Open(cfg.Paths.CatalogPath)
			if err != nil {
				return fmt.Errorf("open run catalog: %w", err)
			}
			defer store.Close()

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("read run history: %w", err)
			}
			if jsonOut {
				docs := make([]runJSON, 0, len(runs))
				for _, run := range runs {
					docs = append(docs, statusJSON(run, nil))
				}
				return writeJSON(cmd, docs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				outcome := "ok"
				if run.Err != "" {
					outcome = "failed"
				}
				rows = append(rows, []string{
					run.StartedAt.Local().Format("2006-01-02 15:04"),
					run.ID,
					fmt.Sprintf("%d", run.Built),
					fmt.Sprintf("%d", run.Skipped),
					fmt.Sprintf("%d", run.Evicted),
					fmt.Sprintf("%d", run.Failed),
					outcome,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Run", "Built", "Skipped", "Evicted", "Failed", "Result"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
