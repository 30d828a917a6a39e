// Command xtalred reduces single-crystal diffraction peaks: it accumulates
// observations, splits domains, fits extinction, calibrates the crystal
// frame and writes reflection files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/katalvlaran/xtalred/config"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "xtalred",
	Short: "Peak intensity aggregation, correction and calibration",
	Long: `xtalred keeps a persistent store of reflection records between runs.

A typical reduction:
  xtalred ingest peaks.yaml
  xtalred split
  xtalred extinction
  xtalred calibrate
  xtalred hkl out.hkl

Settings come from --config and XTALRED_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			return err
		}
		if logger, err = newLogger(cfg.Log, verbose); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// newLogger builds a JSON production logger or a console development
// logger at the configured level; verbose forces debug.
func newLogger(c config.LogConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(ingestCmd, splitCmd, normalizeCmd, absorptionCmd, extinctionCmd, calibrateCmd)
	rootCmd.AddCommand(hklCmd, summaryCmd, worklistCmd)
	rootCmd.AddCommand(newRunCmd, runsCmd, partialCmd, reconcileCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
