package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katalvlaran/xtalred/reduce"
	"github.com/katalvlaran/xtalred/statedb"
)

// Worker runs share nothing but the partials database: each worker
// ingests its share of the data into an empty store and stores it under a
// run id; reconcile folds every partial of the run into the state file.

var newRunCmd = &cobra.Command{
	Use:   "new-run",
	Short: "Register a worker run and print its id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := statedb.Open(cmd.Context(), cfg.State.Database, logger)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		id, err := db.NewRun(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)

		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List worker runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := statedb.Open(cmd.Context(), cfg.State.Database, logger)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		runs, err := db.Runs(cmd.Context())
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.Partials)
		}

		return nil
	},
}

var partialCmd = &cobra.Command{
	Use:   "partial [run] [worker] [document...]",
	Short: "Ingest documents into an empty store and save it as a worker partial",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		worker, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("worker %q: %w", args[1], statedb.ErrBadWorker)
		}
		p, err := reduce.NewWorker(cfg, logger)
		if err != nil {
			return err
		}
		if err = ingestFiles(p, args[2:]); err != nil {
			return err
		}

		db, err := statedb.Open(cmd.Context(), cfg.State.Database, logger)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		return db.PutPartial(cmd.Context(), args[0], worker, p.Store())
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [run]",
	Short: "Fold every worker partial of a run into the state file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := reduce.New(cfg, logger)
		if err != nil {
			return err
		}
		db, err := statedb.Open(cmd.Context(), cfg.State.Database, logger)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		taken, err := db.Reconcile(cmd.Context(), args[0], p.Store())
		if err != nil {
			return err
		}
		logger.Info("reconciled", zap.String("run", args[0]), zap.Int("taken", taken))

		return p.Save()
	},
}
