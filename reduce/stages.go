package reduce

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/xtalred/calibrate"
	"github.com/katalvlaran/xtalred/crystal"
	"github.com/katalvlaran/xtalred/extinction"
	"github.com/katalvlaran/xtalred/hkl"
)

// ExtinctionResult is the outcome of the extinction stage.
type ExtinctionResult struct {
	Selection extinction.Selection
	Constants extinction.Constants
	Points    []extinction.Point
}

// WriteReport writes the fit report.
func (r *ExtinctionResult) WriteReport(w io.Writer) error {
	return extinction.WriteReport(w, r.Selection)
}

// WriteCurves writes the per-family curves of the selected fit.
func (r *ExtinctionResult) WriteCurves(w io.Writer) error {
	return extinction.WriteCurves(w, extinction.Curves(r.Selection.Best, r.Points))
}

// LoadStructure reads the configured structure table.
func (p *Pipeline) LoadStructure() (*extinction.StructureTable, error) {
	path := p.cfg.Extinction.StructureFile
	if path == "" {
		return nil, fmt.Errorf("extinction.structure_file is not set: %w", extinction.ErrBadStructure)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return extinction.LoadStructureTable(f)
}

// Extinction fits every configured model to the extinction-free cluster
// intensities, concurrently, keeps the best, and writes the derived
// constants into every record.
//
// Stage 1 (Collect): one point per Lorentz cluster.
// Stage 2 (Fit): one goroutine per model; failures are kept per model.
// Stage 3 (Select): lowest χ², refined to type I/II when warranted.
// Stage 4 (Apply): isotropic or anisotropic constants; an underdetermined
// anisotropic fit falls back to the isotropic constant.
func (p *Pipeline) Extinction(ctx context.Context, structure extinction.StructureModel) (*ExtinctionResult, error) {
	models, err := p.cfg.ExtinctionModels()
	if err != nil {
		return nil, err
	}
	settings := p.cfg.ExtinctionSettings()
	points := extinction.Collect(p.store, structure, p.store.MergeOptions())
	p.log.Info("extinction points collected", zap.Int("points", len(points)), zap.Int("models", len(models)))

	fits := make([]extinction.Fit, len(models))
	errs := make([]error, len(models))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range models {
		i, m := i, m
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fits[i], errs[i] = extinction.FitModel(m, points, settings)

			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	for i, m := range models {
		if errs[i] != nil {
			p.log.Warn("extinction fit failed", zap.Stringer("model", m), zap.Error(errs[i]))
			continue
		}
		p.log.Debug("extinction fit",
			zap.Stringer("model", m),
			zap.Float64("chi2", fits[i].ChiSquare),
			zap.Int("iterations", fits[i].Iterations))
	}

	sel, err := extinction.Choose(models, fits, errs, points, settings)
	if err != nil {
		return nil, err
	}
	best := sel.Best
	p.log.Info("extinction model selected",
		zap.Stringer("model", best.Model),
		zap.String("regime", sel.Message),
		zap.Float64("chi2", best.ChiSquare),
		zap.Float64("r", best.Params.R),
		zap.Float64("g", best.Params.G))

	consts, err := extinction.NewConstants(best, points, p.cfg.Extinction.Anisotropic)
	if errors.Is(err, extinction.ErrUnderdetermined) {
		p.log.Warn("anisotropic constants underdetermined, using isotropic", zap.Error(err))
		consts, err = extinction.NewConstants(best, points, false)
	}
	if err != nil {
		return nil, err
	}
	p.store.ApplyExtinction(consts.At)
	p.log.Info("extinction applied",
		zap.Bool("anisotropic", consts.Anisotropic), zap.Float64("constant", consts.Isotropic))

	return &ExtinctionResult{Selection: sel, Constants: consts, Points: points}, nil
}

// CalibrationResult is the outcome of the calibration stage.
type CalibrationResult struct {
	calibrate.Result
	Selected []calibrate.Pair
}

// WriteUB writes the refined UB in the ISAW layout.
func (r *CalibrationResult) WriteUB(w io.Writer) error { return crystal.WriteISAW(w, r.UB) }

// WriteList writes the calibration reflections.
func (r *CalibrationResult) WriteList(w io.Writer) error { return calibrate.WriteList(w, r.Selected) }

// Calibrate refines the geometry against the strong reflections and makes
// the refined geometry current.
func (p *Pipeline) Calibrate() (*CalibrationResult, error) {
	g := p.store.Geometry()
	pairs := calibrate.Select(p.store, p.cfg.CalibrationThresholds())
	p.log.Info("calibration reflections selected", zap.Int("pairs", len(pairs)))

	res, err := calibrate.Refine(g, pairs, calibrate.DefaultSettings())
	if err != nil {
		return nil, err
	}
	if err = p.store.SetGeometry(res.Geometry(g)); err != nil {
		return nil, err
	}
	l := res.Lattice
	p.log.Info("geometry calibrated",
		zap.Stringer("system", res.System),
		zap.Float64("a", l.A), zap.Float64("b", l.B), zap.Float64("c", l.C),
		zap.Float64("alpha", l.Alpha), zap.Float64("beta", l.Beta), zap.Float64("gamma", l.Gamma),
		zap.Float64("rms", res.RMS))

	return &CalibrationResult{Result: res, Selected: pairs}, nil
}

// WriteHKL writes the reflection file and returns the number of lines.
func (p *Pipeline) WriteHKL(w io.Writer) (int, error) {
	rows, err := hkl.Rows(p.store)
	if err != nil {
		return 0, err
	}
	n, err := hkl.Write(w, rows, p.cfg.HKLOptions(p.store.Geometry()))
	if err != nil {
		return n, err
	}
	p.log.Info("reflections written", zap.Int("candidates", len(rows)), zap.Int("written", n))

	return n, nil
}
