package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wipash/northgrove-timelapse/internal/catalog"
	"github.com/wipash/northgrove-timelapse/internal/config"
	"github.com/wipash/northgrove-timelapse/internal/deps"
	"github.com/wipash/northgrove-timelapse/internal/drive"
	"github.com/wipash/northgrove-timelapse/internal/encoder"
	"github.com/wipash/northgrove-timelapse/internal/engine"
	"github.com/wipash/northgrove-timelapse/internal/logging"
	"github.com/wipash/northgrove-timelapse/internal/notifications"
	"github.com/wipash/northgrove-timelapse/internal/remote"
	"github.com/wipash/northgrove-timelapse/internal/runlock"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		days     int
		allWeeks bool
		full     bool
		noUpload bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile source images into daily and weekly videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			for _, status := range deps.CheckBinaries(deps.Default("")) {
				if !status.Available && !status.Optional {
					return fmt.Errorf("%s unavailable: %s (see 'timelapse deps')",
						status.Name, status.Detail)
				}
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				LogDir: cfg.Paths.LogDir,
			})
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			lock, err := runlock.New(cfg.Paths.LogDir)
			if err != nil {
				return err
			}
			if err := lock.Acquire(); err != nil {
				if errors.Is(err, runlock.ErrHeld) {
					fmt.Fprintln(cmd.OutOrStdout(), "Another run is already in progress; exiting.")
					return nil
				}
				return err
			}
			defer lock.Release()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := buildStore(cfg)
			if err != nil {
				return err
			}

			var cat *catalog.Store
			if cfg.Paths.CatalogPath != "" {
				if cat, err = catalog.Open(cfg.Paths.CatalogPath); err != nil {
					logger.Warn("run catalog unavailable", logging.Error(err))
					cat = nil
				} else {
					defer cat.Close()
				}
			}

			source := drive.NewClient(drive.Options{
				BaseURL:    cfg.Source.BaseURL,
				Token:      cfg.Source.APIToken,
				ItemPrefix: cfg.Source.ItemPrefix,
			})
			enc := encoder.NewFFmpeg(cfg.Video, logger)
			notifier := notifications.NewService(cfg)

			eng := engine.New(cfg, source, store, enc, notifier, cat, logger)
			report, err := eng.Run(runCtx, engine.Options{
				RecencyBoundDays: days,
				AllWeeks:         allWeeks,
				BuildFull:        full,
				UploadEnabled:    cfg.Remote.Enabled && !noUpload,
			})
			printReport(cmd, report)
			return err
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Process only the last N days (current week always included)")
	cmd.Flags().BoolVar(&allWeeks, "all-weeks", false, "Materialize and re-publish all historical weekly videos")
	cmd.Flags().BoolVar(&full, "full", false, "Build the full timelapse (slow)")
	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "Skip every remote interaction")
	return cmd
}

func buildStore(cfg *config.Config) (remote.Store, error) {
	if !cfg.Remote.Enabled {
		return nil, nil
	}
	store, err := remote.NewS3Store(remote.S3Options{
		EndpointURL:     cfg.Remote.EndpointURL,
		Bucket:          cfg.Remote.Bucket,
		Region:          cfg.Remote.Region,
		AccessKeyID:     cfg.Remote.AccessKeyID,
		SecretAccessKey: cfg.Remote.SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("configure remote store: %w", err)
	}
	return store, nil
}

func printReport(cmd *cobra.Command, report *engine.RunReport) {
	if report == nil {
		return
	}
	out := cmd.OutOrStdout()
	duration := report.FinishedAt.Sub(report.StartedAt).Round(time.Second)
	fmt.Fprintf(out, "Run %s finished in %s: %d built, %d skipped, %d evicted, %d failed\n",
		report.RunID, duration,
		len(report.Built), len(report.Skipped), len(report.Evicted), len(report.Errors))
	for _, ke := range report.Errors {
		fmt.Fprintf(out, "  FAILED %s: %v\n", ke.Key, ke.Err)
	}
}
