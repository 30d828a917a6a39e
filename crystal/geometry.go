package crystal

import "math"

// NewGeometry validates l and returns a geometry with U = I, no modulation
// and primitive centering.
func NewGeometry(l Lattice) (*Geometry, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	return &Geometry{Lattice: l, U: Identity3(), Centering: Primitive}, nil
}

// NewGeometryFromUB splits UB into lattice constants and U = UB·B⁻¹.
func NewGeometryFromUB(ub Mat3) (*Geometry, error) {
	l, err := LatticeFromUB(ub)
	if err != nil {
		return nil, err
	}
	B, err := l.BMatrix()
	if err != nil {
		return nil, err
	}
	Binv, err := B.Inverse()
	if err != nil {
		return nil, ErrSingularUB
	}

	return &Geometry{Lattice: l, U: ub.Mul(Binv), Centering: Primitive}, nil
}

// Clone returns an independent copy.
func (g *Geometry) Clone() *Geometry {
	c := *g

	return &c
}

// UB returns U·B.
func (g *Geometry) UB() (Mat3, error) {
	B, err := g.Lattice.BMatrix()
	if err != nil {
		return Mat3{}, err
	}

	return g.U.Mul(B), nil
}

// Offset returns Δ = m·q₁ + n·q₂ + p·q₃.
func (g *Geometry) Offset(mnp [3]int) Vec3 {
	var d Vec3
	for i := 0; i < 3; i++ {
		d = d.Add(g.Modulations[i].Scale(float64(mnp[i])))
	}

	return d
}

// Fractional returns hkl + Δ.
func (g *Geometry) Fractional(hkl, mnp [3]int) Vec3 {
	return Vec3{float64(hkl[0]), float64(hkl[1]), float64(hkl[2])}.Add(g.Offset(mnp))
}

// Q returns 2π·UB·(hkl + Δ) in the sample frame.
func (g *Geometry) Q(hkl, mnp [3]int) (Vec3, error) {
	ub, err := g.UB()
	if err != nil {
		return Vec3{}, err
	}

	return ub.MulVec(g.Fractional(hkl, mnp)).Scale(2 * math.Pi), nil
}

// DSpacing returns the d-spacing of hkl + Δ in Å.
func (g *Geometry) DSpacing(hkl, mnp [3]int) (float64, error) {
	return g.Lattice.DSpacing(g.Fractional(hkl, mnp))
}

// ActiveModulations returns the non-zero modulation vectors in order.
func (g *Geometry) ActiveModulations() []Vec3 {
	var out []Vec3
	for _, q := range g.Modulations {
		if q.Norm() > 0 {
			out = append(out, q)
		}
	}

	return out
}
