package extinction

import (
	"fmt"
	"strings"
)

// Model is a closed set of extinction models.
type Model int

const (
	Primary Model = iota
	SecondaryGaussian
	SecondaryLorentzian
	GaussianTypeI
	GaussianTypeII
	LorentzianTypeI
	LorentzianTypeII
)

// Distribution is the mosaic-block distribution of a secondary model.
type Distribution int

const (
	NoDistribution Distribution = iota
	Gaussian
	Lorentzian
)

var modelNames = [...]string{
	Primary:             "primary",
	SecondaryGaussian:   "secondary, gaussian",
	SecondaryLorentzian: "secondary, lorentzian",
	GaussianTypeI:       "secondary, gaussian type I",
	GaussianTypeII:      "secondary, gaussian type II",
	LorentzianTypeI:     "secondary, lorentzian type I",
	LorentzianTypeII:    "secondary, lorentzian type II",
}

// Models returns every model in declaration order.
func Models() []Model {
	return []Model{Primary, SecondaryGaussian, SecondaryLorentzian,
		GaussianTypeI, GaussianTypeII, LorentzianTypeI, LorentzianTypeII}
}

// String returns the model name.
func (m Model) String() string {
	if m < 0 || int(m) >= len(modelNames) {
		return fmt.Sprintf("model(%d)", int(m))
	}

	return modelNames[m]
}

// ParseModel accepts the names produced by String, case-insensitively and
// ignoring extra spaces around the comma.
func ParseModel(s string) (Model, error) {
	parts := strings.Split(strings.ToLower(s), ",")
	for i, part := range parts {
		parts[i] = strings.Join(strings.Fields(part), " ")
	}
	norm := strings.Join(parts, ", ")
	for i, name := range modelNames {
		if strings.EqualFold(name, norm) {
			return Model(i), nil
		}
	}

	return 0, fmt.Errorf("%q: %w", s, ErrUnknownModel)
}

// Distribution returns the mosaic distribution of m.
func (m Model) Distribution() Distribution {
	switch m {
	case SecondaryGaussian, GaussianTypeI, GaussianTypeII:
		return Gaussian
	case SecondaryLorentzian, LorentzianTypeI, LorentzianTypeII:
		return Lorentzian
	default:
		return NoDistribution
	}
}

// IsGeneric reports whether m is a secondary model that still carries both
// r and g.
func (m Model) IsGeneric() bool {
	return m == SecondaryGaussian || m == SecondaryLorentzian
}

// hasR and hasG report which size parameters the model fits.
func (m Model) hasR() bool { return m != GaussianTypeI && m != LorentzianTypeI }
func (m Model) hasG() bool { return m != Primary && m != GaussianTypeII && m != LorentzianTypeII }

func (m Model) typeI() bool  { return m == GaussianTypeI || m == LorentzianTypeI }
func (m Model) typeII() bool { return m == GaussianTypeII || m == LorentzianTypeII }

// limits returns the type I and type II refinements of a generic model.
func (m Model) limits() (Model, Model) {
	if m.Distribution() == Lorentzian {
		return LorentzianTypeI, LorentzianTypeII
	}

	return GaussianTypeI, GaussianTypeII
}
