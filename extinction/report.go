package extinction

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/katalvlaran/xtalred/peak"
)

// Misorientation returns the angular mosaic spread (degrees) implied by the
// mosaic parameter g of a secondary model, or 0 for other models.
func Misorientation(m Model, g float64) float64 {
	if !(g > 0) {
		return 0
	}
	switch m.Distribution() {
	case Gaussian:
		return 1 / (2 * math.Sqrt(math.Pi) * g) * 180 / math.Pi
	case Lorentzian:
		return 1 / (2 * math.Pi * g) * 180 / math.Pi
	default:
		return 0
	}
}

// WriteReport writes one block per converged fit in candidate order, then
// the selected model and the refinement message. Size r is reported in
// microns.
func WriteReport(w io.Writer, sel Selection) error {
	bw := bufio.NewWriter(w)
	for _, f := range sel.Fits {
		writeFit(bw, f)
	}
	fmt.Fprintf(bw, "model: %v %s\n", sel.Best.Model, sel.Message)

	return bw.Flush()
}

func writeFit(w io.Writer, f Fit) {
	p := f.Params
	fmt.Fprintf(w, "model: %v\n", f.Model)
	if p.R > 0 {
		fmt.Fprintf(w, "crystallite size r: %.4f micron\n", p.R/1e4)
	}
	if p.G > 0 {
		fmt.Fprintf(w, "crystallite parameter g: %.4f\n", p.G)
		if f.Model.Distribution() != NoDistribution {
			fmt.Fprintf(w, "crystallite misorientation: %.4f deg\n", Misorientation(f.Model, p.G))
		}
	}
	fmt.Fprintf(w, "Uiso: %.4e\n", p.Uiso)
	fmt.Fprintf(w, "scale: %.4e\n", p.Scale)
	fmt.Fprintf(w, "goniometer offset: %.4f deg\n", p.GonioOffset)
	fmt.Fprintf(w, "sample offset: %.4f deg\n", p.SampleOffset)
	fmt.Fprintf(w, "wavelength sensitivity: %.4f\n", p.Wavelength)
	fmt.Fprintf(w, "offcentering mean parameter: %.4f\n", p.OffMean)
	fmt.Fprintf(w, "offcentering effective radius: %.4f\n", p.OffRadius)
	fmt.Fprintf(w, "eccentricity: %.4f\n", p.Eccentricity)
	fmt.Fprintf(w, "chi^2: %.4e\n\n", f.ChiSquare)
}

// Curve is the measured and fitted intensity of one reflection family as a
// function of x, sorted by x.
type Curve struct {
	Family    peak.Key
	X         []float64
	Intensity []float64
	Sigma     []float64
	Fit       []float64
}

// Curves groups points by family. Families are ordered by key.
func Curves(f Fit, points []Point) []Curve {
	byFamily := make(map[peak.Key][]Point)
	for _, p := range usable(points) {
		byFamily[p.Family] = append(byFamily[p.Family], p)
	}
	families := make([]peak.Key, 0, len(byFamily))
	for k := range byFamily {
		families = append(families, k)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].Less(families[j]) })

	out := make([]Curve, 0, len(families))
	for _, fam := range families {
		pts := byFamily[fam]
		c := Curve{Family: fam}
		xs := make([]float64, len(pts))
		for i, p := range pts {
			xs[i] = f.X(p)
		}
		order := make([]int, len(pts))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool { return xs[order[i]] < xs[order[j]] })
		for _, i := range order {
			c.X = append(c.X, xs[i])
			c.Intensity = append(c.Intensity, pts[i].Intensity)
			c.Sigma = append(c.Sigma, pts[i].Sigma)
			c.Fit = append(c.Fit, f.Predict(pts[i]))
		}
		out = append(out, c)
	}

	return out
}

// WriteCurves writes one "h,k,l,x,I,sigma,fit" line per point.
func WriteCurves(w io.Writer, curves []Curve) error {
	bw := bufio.NewWriter(w)
	for _, c := range curves {
		hkl := c.Family.HKL()
		for i := range c.X {
			fmt.Fprintf(bw, "%d,%d,%d,%g,%g,%g,%g\n",
				hkl[0], hkl[1], hkl[2], c.X[i], c.Intensity[i], c.Sigma[i], c.Fit[i])
		}
	}

	return bw.Flush()
}
