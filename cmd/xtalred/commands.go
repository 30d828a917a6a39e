package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katalvlaran/xtalred/reduce"
)

var (
	reportPath string
	curvesPath string
	ubPath     string
	listPath   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [document...]",
	Short: "Accumulate observations and integration results into the state file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := reduce.New(cfg, logger)
		if err != nil {
			return err
		}
		if err = ingestFiles(p, args); err != nil {
			return err
		}

		return p.Save()
	},
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split records into domains by omega clustering",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := reduce.New(cfg, logger)
		if err != nil {
			return err
		}
		p.Split()

		return p.Save()
	},
}

var extinctionCmd = &cobra.Command{
	Use:   "extinction",
	Short: "Fit extinction models and apply the selected constants",
	Long: `Fits every configured model against the structure table
(extinction.structure_file), keeps the lowest chi^2, and stores the derived
per-record constants. The fit report goes to --report and the per-family
curves to --curves.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := reduce.New(cfg, logger)
		if err != nil {
			return err
		}
		tab, err := p.LoadStructure()
		if err != nil {
			return err
		}
		res, err := p.Extinction(cmd.Context(), tab)
		if err != nil {
			return err
		}
		if err = writeFile(reportPath, res.WriteReport); err != nil {
			return err
		}
		if err = writeFile(curvesPath, res.WriteCurves); err != nil {
			return err
		}

		return p.Save()
	},
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Refine lattice constants and orientation against strong reflections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := reduce.New(cfg, logger)
		if err != nil {
			return err
		}
		res, err := p.Calibrate()
		if err != nil {
			return err
		}
		if err = writeFile(ubPath, res.WriteUB); err != nil {
			return err
		}
		if err = writeFile(listPath, res.WriteList); err != nil {
			return err
		}

		return p.Save()
	},
}

var hklCmd = &cobra.Command{
	Use:   "hkl [output]",
	Short: "Write the reflection file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := reduce.New(cfg, logger)
		if err != nil {
			return err
		}

		return writeFile(args[0], func(w io.Writer) error {
			_, err := p.WriteHKL(w)
			return err
		})
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Apply the configured per-bank scale factors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := reduce.New(cfg, logger)
		if err != nil {
			return err
		}
		if err = p.Normalize(); err != nil {
			return err
		}

		return p.Save()
	},
}

var absorptionCmd = &cobra.Command{
	Use:   "absorption",
	Short: "Apply the spherical absorption correction",
	Long: `Reads the transmission table (absorption.table) and applies the
correction for a sphere of absorption.radius, or of the radius implied by
absorption.mass and absorption.density.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := reduce.New(cfg, logger)
		if err != nil {
			return err
		}
		if err = p.Absorb(); err != nil {
			return err
		}

		return p.Save()
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary [output]",
	Short: "Write a YAML summary of every merged reflection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := reduce.New(cfg, logger)
		if err != nil {
			return err
		}

		return writeFile(args[0], p.WriteSummary)
	},
}

var worklistCmd = &cobra.Command{
	Use:   "worklist [output]",
	Short: "Write the domains awaiting integration with their runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := reduce.New(cfg, logger)
		if err != nil {
			return err
		}

		return writeFile(args[0], p.WriteWorklist)
	},
}

func init() {
	extinctionCmd.Flags().StringVar(&reportPath, "report", "extinction_report.txt", "fit report output")
	extinctionCmd.Flags().StringVar(&curvesPath, "curves", "extinction_curves.csv", "per-family curve output")
	calibrateCmd.Flags().StringVar(&ubPath, "ub", "calibrated.mat", "refined UB output (ISAW layout)")
	calibrateCmd.Flags().StringVar(&listPath, "list", "calibration.txt", "calibration reflections output")
}

func ingestFiles(p *reduce.Pipeline, paths []string) error {
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = p.Ingest(f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	return nil
}

// writeFile creates path and hands it to write; the close error is
// reported when write succeeded.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err = write(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("written", zap.String("file", path))

	return nil
}
