package crystal

import (
	"fmt"
	"strings"
)

// Centering is a lattice centering used to prune systematically absent
// reflections.
type Centering int

const (
	Primitive Centering = iota
	ACentered
	BCentered
	CCentered
	BodyCentered
	FaceCentered
	RhombohedralObverse
	RhombohedralReverse
	HexagonalH
)

var centeringSymbols = [...]string{
	Primitive:           "P",
	ACentered:           "A",
	BCentered:           "B",
	CCentered:           "C",
	BodyCentered:        "I",
	FaceCentered:        "F",
	RhombohedralObverse: "Robv",
	RhombohedralReverse: "Rrev",
	HexagonalH:          "H",
}

// String returns the centering symbol.
func (c Centering) String() string {
	if c < 0 || int(c) >= len(centeringSymbols) {
		return "?"
	}

	return centeringSymbols[c]
}

// ParseCentering accepts P, A, B, C, I, F, R (obverse), Robv, Rrev and H.
// The empty string is primitive.
func ParseCentering(s string) (Centering, error) {
	switch strings.TrimSpace(s) {
	case "", "P":
		return Primitive, nil
	case "R":
		return RhombohedralObverse, nil
	}
	for i, sym := range centeringSymbols {
		if strings.EqualFold(sym, strings.TrimSpace(s)) {
			return Centering(i), nil
		}
	}

	return Primitive, fmt.Errorf("%q: %w", s, ErrUnknownCentering)
}

// Allowed reports whether the main reflection hkl survives the centering
// condition.
func (c Centering) Allowed(hkl [3]int) bool {
	h, k, l := hkl[0], hkl[1], hkl[2]
	switch c {
	case ACentered:
		return even(k + l)
	case BCentered:
		return even(h + l)
	case CCentered:
		return even(h + k)
	case BodyCentered:
		return even(h + k + l)
	case FaceCentered:
		return even(h+k) && even(k+l) && even(h+l)
	case RhombohedralObverse:
		return mod3(-h+k+l) == 0
	case RhombohedralReverse:
		return mod3(h-k+l) == 0
	case HexagonalH:
		return mod3(h-k) == 0
	default:
		return true
	}
}

func even(v int) bool { return v%2 == 0 }

func mod3(v int) int { return ((v % 3) + 3) % 3 }

// Satellites enumerates the satellite index triples (m,n,p) reachable with
// nmod active modulation vectors up to |order| = maxOrder. Without cross
// terms only one index is non-zero at a time. The main reflection (0,0,0)
// is always first.
func Satellites(nmod, maxOrder int, crossTerms bool) [][3]int {
	out := [][3]int{{0, 0, 0}}
	if nmod <= 0 || maxOrder <= 0 {
		return out
	}
	if nmod > 3 {
		nmod = 3
	}
	if !crossTerms {
		for i := 0; i < nmod; i++ {
			for o := -maxOrder; o <= maxOrder; o++ {
				if o == 0 {
					continue
				}
				var mnp [3]int
				mnp[i] = o
				out = append(out, mnp)
			}
		}

		return out
	}

	span := func(i int) (int, int) {
		if i < nmod {
			return -maxOrder, maxOrder
		}

		return 0, 0
	}
	m0, m1 := span(0)
	n0, n1 := span(1)
	p0, p1 := span(2)
	for m := m0; m <= m1; m++ {
		for n := n0; n <= n1; n++ {
			for p := p0; p <= p1; p++ {
				if m == 0 && n == 0 && p == 0 {
					continue
				}
				out = append(out, [3]int{m, n, p})
			}
		}
	}

	return out
}
