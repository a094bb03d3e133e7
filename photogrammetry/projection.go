package photogrammetry

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// SolveProjectionMatrix estimates the 3x4 projection matrix mapping points3d
// onto points2d by direct linear transform, with M[2][3] fixed to 1.
// The residual is the sum of squared errors of the linear system.
func SolveProjectionMatrix(points2d []r2.Point, points3d []r3.Vector) (*mat.Dense, float64, error) {
	A, b, err := ProjectionSystem(points2d, points3d)
	if err != nil {
		return nil, 0, err
	}

	m, residual, _, err := solveLeastSquares(A, b)
	if err != nil {
		return nil, 0, err
	}

	data := make([]float64, 12)
	copy(data, m.RawVector().Data)
	data[11] = 1
	return mat.NewDense(3, 4, data), residual, nil
}
