package photogrammetry

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const DefaultTriangulationThreshold = 1.0

// Triangulate recovers one 3D point per correspondence seen through the
// projection matrices m1 and m2 by linear least squares. Points whose system
// is rank deficient or whose sum of squared residuals is not strictly below
// threshold are dropped, together with their observations. Surviving points
// keep the input order.
func Triangulate(points1 []r2.Point, points2 []r2.Point, m1 mat.Matrix, m2 mat.Matrix, threshold float64) ([]r3.Vector, []r2.Point, []r2.Point, error) {
	if err := checkCorrespondences(len(points1), len(points2), 0); err != nil {
		return nil, nil, nil, err
	}
	for _, m := range []mat.Matrix{m1, m2} {
		if rows, cols := m.Dims(); rows != 3 || cols != 4 {
			return nil, nil, nil, errors.Wrapf(ErrBadShape, "projection matrix is %dx%d", rows, cols)
		}
	}

	points3d := []r3.Vector{}
	inliers1 := []r2.Point{}
	inliers2 := []r2.Point{}

	A := mat.NewDense(4, 3, nil)
	b := mat.NewVecDense(4, nil)
	for i := range points1 {
		fillTriangulationRows(A, b, 0, m1, points1[i])
		fillTriangulationRows(A, b, 2, m2, points2[i])

		X, residual, rank, err := solveLeastSquares(A, b)
		if err != nil {
			return nil, nil, nil, err
		}
		if rank < 3 || !(residual < threshold) {
			continue
		}
		points3d = append(points3d, r3.Vector{X: X.AtVec(0), Y: X.AtVec(1), Z: X.AtVec(2)})
		inliers1 = append(inliers1, points1[i])
		inliers2 = append(inliers2, points2[i])
	}
	return points3d, inliers1, inliers2, nil
}

// fillTriangulationRows writes the two equations (M₃·u - M₁)·X = M₁₄ - M₃₄·u
// and (M₃·v - M₂)·X = M₂₄ - M₃₄·v of one view, starting at row.
func fillTriangulationRows(A *mat.Dense, b *mat.VecDense, row int, m mat.Matrix, p r2.Point) {
	for j := range 3 {
		A.Set(row, j, m.At(2, j)*p.X-m.At(0, j))
		A.Set(row+1, j, m.At(2, j)*p.Y-m.At(1, j))
	}
	b.SetVec(row, m.At(0, 3)-m.At(2, 3)*p.X)
	b.SetVec(row+1, m.At(1, 3)-m.At(2, 3)*p.Y)
}
