package calibrate

import (
	"bufio"
	"fmt"
	"io"
)

// WriteList writes the calibration reflections, one per line:
// h k l [m n p] intensity sigma Qx Qy Qz. Satellite columns appear when any
// pair is a satellite.
func WriteList(w io.Writer, pairs []Pair) error {
	sat := false
	for _, p := range pairs {
		sat = sat || p.Key.IsSatellite()
	}
	bw := bufio.NewWriter(w)
	for _, p := range pairs {
		fmt.Fprintf(bw, "%4d%4d%4d", p.Key[0], p.Key[1], p.Key[2])
		if sat {
			fmt.Fprintf(bw, "%4d%4d%4d", p.Key[3], p.Key[4], p.Key[5])
		}
		fmt.Fprintf(bw, "%12.2f%10.2f%10.5f%10.5f%10.5f\n", p.Intensity, p.Sigma, p.Q[0], p.Q[1], p.Q[2])
	}

	return bw.Flush()
}
