package peak

import "fmt"

// Key identifies a reflection: (h, k, l, m, n, p).
type Key [6]int

// NewKey joins Miller indices and satellite orders.
func NewKey(hkl, mnp [3]int) Key {
	return Key{hkl[0], hkl[1], hkl[2], mnp[0], mnp[1], mnp[2]}
}

// HKL returns the Miller indices.
func (k Key) HKL() [3]int { return [3]int{k[0], k[1], k[2]} }

// MNP returns the satellite orders.
func (k Key) MNP() [3]int { return [3]int{k[3], k[4], k[5]} }

// IsSatellite reports whether any satellite order is non-zero.
func (k Key) IsSatellite() bool { return k[3] != 0 || k[4] != 0 || k[5] != 0 }

// Less orders keys lexicographically.
func (k Key) Less(o Key) bool {
	for i := range k {
		if k[i] != o[i] {
			return k[i] < o[i]
		}
	}

	return false
}

// String renders (h,k,l) for main reflections and (h,k,l,m,n,p) otherwise.
func (k Key) String() string {
	if !k.IsSatellite() {
		return fmt.Sprintf("(%d,%d,%d)", k[0], k[1], k[2])
	}

	return fmt.Sprintf("(%d,%d,%d,%d,%d,%d)", k[0], k[1], k[2], k[3], k[4], k[5])
}
