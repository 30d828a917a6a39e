package crystal

// Vec3 is a 3-vector.
type Vec3 [3]float64

// Mat3 is a row-major 3×3 matrix.
type Mat3 [3][3]float64

// Lattice holds the six cell constants (Å, degrees).
type Lattice struct {
	A     float64 `yaml:"a" mapstructure:"a"`
	B     float64 `yaml:"b" mapstructure:"b"`
	C     float64 `yaml:"c" mapstructure:"c"`
	Alpha float64 `yaml:"alpha" mapstructure:"alpha"`
	Beta  float64 `yaml:"beta" mapstructure:"beta"`
	Gamma float64 `yaml:"gamma" mapstructure:"gamma"`
}

// Geometry is the crystal frame used to compute Q-vectors and d-spacings.
// Modulations holds up to three modulation vectors in reciprocal lattice
// units; zero vectors are inactive.
type Geometry struct {
	Lattice     Lattice
	U           Mat3
	Modulations [3]Vec3
	MaxOrder    int
	CrossTerms  bool
	Centering   Centering
}

// System enumerates the crystal-system parameterisations used by calibration.
type System int

const (
	Cubic System = iota
	Rhombohedral
	Tetragonal
	Hexagonal
	Orthorhombic
	MonoclinicGamma // α = β = 90°, γ free
	MonoclinicBeta  // α = γ = 90°, β free
	Triclinic
)

var systemNames = [...]string{
	Cubic:           "cubic",
	Rhombohedral:    "rhombohedral",
	Tetragonal:      "tetragonal",
	Hexagonal:       "hexagonal",
	Orthorhombic:    "orthorhombic",
	MonoclinicGamma: "monoclinic (gamma)",
	MonoclinicBeta:  "monoclinic (beta)",
	Triclinic:       "triclinic",
}

// String returns the lower-case system name.
func (s System) String() string {
	if s < 0 || int(s) >= len(systemNames) {
		return "unknown"
	}

	return systemNames[s]
}
