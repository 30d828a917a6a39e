package crystal

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// The ISAW frame has x along the beam and z up; internally z is the beam
// and y is up. isawFromSample maps sample-frame vectors into that frame.
var isawFromSample = Mat3{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}}

// WriteISAW writes ub in the ISAW text layout: three lines holding the
// transposed UB in the ISAW frame, the lattice constants with the cell
// volume, and a line of (zero) uncertainties.
func WriteISAW(w io.Writer, ub Mat3) error {
	l, err := LatticeFromUB(ub)
	if err != nil {
		return err
	}
	M := isawFromSample.Mul(ub).T()
	bw := bufio.NewWriter(w)
	for i := 0; i < 3; i++ {
		fmt.Fprintf(bw, "%13.8f %13.8f %13.8f\n", M[i][0], M[i][1], M[i][2])
	}
	fmt.Fprintf(bw, "%10.4f %10.4f %10.4f %10.4f %10.4f %10.4f %10.4f\n",
		l.A, l.B, l.C, l.Alpha, l.Beta, l.Gamma, l.Volume())
	fmt.Fprintf(bw, "%10.4f %10.4f %10.4f %10.4f %10.4f %10.4f %10.4f\n", 0., 0., 0., 0., 0., 0., 0.)

	return bw.Flush()
}

// ReadISAW parses a UB matrix written by WriteISAW (or by ISAW itself).
// Only the first three numeric lines are required; trailing lattice and
// uncertainty lines are ignored because they are derivable from UB.
func ReadISAW(r io.Reader) (Mat3, error) {
	var M Mat3
	sc := bufio.NewScanner(r)
	row := 0
	for sc.Scan() && row < 3 {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return Mat3{}, fmt.Errorf("line %d: %w", row+1, ErrBadUBFile)
		}
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(fields[j], 64)
			if err != nil {
				return Mat3{}, fmt.Errorf("line %d: %v: %w", row+1, err, ErrBadUBFile)
			}
			M[row][j] = v
		}
		row++
	}
	if err := sc.Err(); err != nil {
		return Mat3{}, err
	}
	if row < 3 {
		return Mat3{}, fmt.Errorf("only %d matrix rows: %w", row, ErrBadUBFile)
	}

	// UB = P⁻¹·Mᵀ with P orthogonal, so P⁻¹ = Pᵀ.
	return isawFromSample.T().Mul(M.T()), nil
}
