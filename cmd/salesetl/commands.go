package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-ingress/pkg/connector"
	"github.com/David-Botos/sales-ingress/pkg/extractor"
	"github.com/David-Botos/sales-ingress/pkg/pipeline"
)

type runOptions struct {
	only []string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		Long: `Extract, clean and load every configured job in order. A failed job is
reported and the run continues with the next one; the command exits non-zero
when any job failed.`,
		Example: `  # Run every job
  salesetl run

  # Run only the users and cards jobs
  salesetl run --only users,cards`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.runOnce(ctx, opts.only)
		},
	}

	cmd.Flags().StringSliceVar(&opts.only, "only", nil, "Comma-separated list of jobs to run")

	return cmd
}

func newListTablesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list-tables",
		Short: "List the tables in the source database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			source, err := connector.NewConnectorFactory(cfg, logger).CreateSource(cmd.Context())
			if err != nil {
				return err
			}
			defer source.Close()

			tables, err := extractor.NewRDSReader(source.DB, logger).ListTables(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range tables {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

type scheduleOptions struct {
	only []string
	now  bool
}

func newScheduleCmd(root *rootOptions) *cobra.Command {
	opts := &scheduleOptions{}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on the configured cron schedule",
		Long: `Run the pipeline every time schedule.cron fires until interrupted. A run
that is still going when the next one is due causes that tick to be skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			runFn := func(ctx context.Context) {
				if err := a.runOnce(ctx, opts.only); err != nil {
					logger.Error("Scheduled run had failures", zap.Error(err))
				}
			}

			scheduler := pipeline.NewScheduler(logger)
			if _, err := scheduler.Schedule(ctx, cfg.Schedule.Cron, runFn); err != nil {
				return err
			}

			if opts.now {
				runFn(ctx)
			}
			scheduler.Run(ctx)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&opts.only, "only", nil, "Comma-separated list of jobs to run")
	cmd.Flags().BoolVar(&opts.now, "now", false, "Run once immediately before waiting for the schedule")

	return cmd
}
