package reduce

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/xtalred/absorption"
	"github.com/katalvlaran/xtalred/peak"
)

// Normalize applies the configured per-bank scale factors.
// Without bank_scales it does nothing.
func (p *Pipeline) Normalize() error {
	if len(p.cfg.BankScales) == 0 {
		p.log.Info("no bank scales configured")
		return nil
	}
	if err := p.store.SetBankScale(p.cfg.BankScales); err != nil {
		return err
	}
	p.log.Info("bank scales applied", zap.Int("banks", len(p.cfg.BankScales)))

	return nil
}

// Absorb applies the spherical absorption correction from the configured
// transmission table.
func (p *Pipeline) Absorb() error {
	path := p.cfg.Absorption.Table
	if path == "" {
		return fmt.Errorf("reduce: no absorption table configured: %w", absorption.ErrBadTable)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	tab, err := absorption.ReadTable(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	sphere := p.cfg.Sphere()
	if err = sphere.Validate(); err != nil {
		return err
	}
	if err = p.store.ApplyAbsorption(sphere.Func(tab)); err != nil {
		return err
	}
	p.log.Info("absorption applied",
		zap.String("table", path),
		zap.Float64("radius", sphere.Radius))

	return nil
}

type summaryEntry struct {
	Key     peak.Key     `yaml:"key,flow"`
	Domain  int          `yaml:"domain"`
	Summary peak.Summary `yaml:",inline"`
}

// WriteSummary writes one YAML entry per domain with its merged values.
func (p *Pipeline) WriteSummary(w io.Writer) error {
	opts := p.store.MergeOptions()
	var entries []summaryEntry
	err := p.store.Each(func(k peak.Key, d int, rec *peak.Record) error {
		entries = append(entries, summaryEntry{Key: k, Domain: d, Summary: rec.Summarize(opts)})
		return nil
	})
	if err != nil {
		return err
	}

	return encodeYAML(w, entries)
}

// WriteWorklist writes the domains awaiting integration as YAML.
func (p *Pipeline) WriteWorklist(w io.Writer) error {
	items, err := p.store.Worklist()
	if err != nil {
		return err
	}
	p.log.Debug("worklist built", zap.Int("items", len(items)))

	return encodeYAML(w, items)
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}

	return enc.Close()
}
