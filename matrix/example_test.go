package matrix_test

import (
	"fmt"

	"github.com/katalvlaran/xtalred/matrix"
)

// ExampleInverse inverts the metric tensor of a 2×3×4 orthorhombic cell.
func ExampleInverse() {
	g, _ := matrix.NewDenseFrom(3, 3, []float64{
		4, 0, 0,
		0, 9, 0,
		0, 0, 16,
	})
	inv, err := matrix.Inverse(g)
	if err != nil {
		fmt.Println(err)
		return
	}
	for i := 0; i < 3; i++ {
		v, _ := inv.At(i, i)
		fmt.Printf("%.4f\n", v)
	}
	// Output:
	// 0.2500
	// 0.1111
	// 0.0625
}

// ExampleSolve solves a small normal-equation system.
func ExampleSolve() {
	A, _ := matrix.NewDenseFrom(2, 2, []float64{
		4, 1,
		1, 3,
	})
	x, err := matrix.Solve(A, []float64{1, 2})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%.4f %.4f\n", x[0], x[1])
	// Output:
	// 0.0909 0.6364
}
