package photogrammetry

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	MinProjectionPoints  = 6
	MinFundamentalPoints = 8
)

// rankTolerance is the relative singular value cutoff used to decide the
// numerical rank of a least squares system.
const rankTolerance = 1e-12

// ProjectionSystem builds the DLT system A·m = b for the first eleven entries
// of a projection matrix, M[2][3] being fixed to 1. Point i fills rows 2i and 2i+1.
func ProjectionSystem(points2d []r2.Point, points3d []r3.Vector) (*mat.Dense, *mat.VecDense, error) {
	if err := checkCorrespondences(len(points2d), len(points3d), MinProjectionPoints); err != nil {
		return nil, nil, err
	}

	A := mat.NewDense(2*len(points2d), 11, nil)
	b := mat.NewVecDense(2*len(points2d), nil)
	for i, p := range points2d {
		X, Y, Z := points3d[i].X, points3d[i].Y, points3d[i].Z
		A.SetRow(2*i, []float64{X, Y, Z, 1, 0, 0, 0, 0, -X * p.X, -Y * p.X, -Z * p.X})
		A.SetRow(2*i+1, []float64{0, 0, 0, 0, X, Y, Z, 1, -X * p.Y, -Y * p.Y, -Z * p.Y})
		b.SetVec(2*i, p.X)
		b.SetVec(2*i+1, p.Y)
	}
	return A, b, nil
}

// FundamentalSystem builds the homogeneous system A·f = 0 whose rows are the
// coefficients of x2ᵗ·F·x1 for a row-major F.
func FundamentalSystem(points1 []r2.Point, points2 []r2.Point) (*mat.Dense, error) {
	if err := checkCorrespondences(len(points1), len(points2), MinFundamentalPoints); err != nil {
		return nil, err
	}

	A := mat.NewDense(len(points1), 9, nil)
	for i := range points1 {
		u1, v1 := points1[i].X, points1[i].Y
		u2, v2 := points2[i].X, points2[i].Y
		A.SetRow(i, []float64{u1 * u2, v1 * u2, u2, u1 * v2, v1 * v2, v2, u1, v1, 1})
	}
	return A, nil
}

// solveLeastSquares solves min ||A·x - b|| through the SVD of A. It returns
// the solution, the sum of squared residuals and the numerical rank of A.
func solveLeastSquares(A mat.Matrix, b mat.Vector) (*mat.VecDense, float64, int, error) {
	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		return nil, 0, 0, errors.WithStack(ErrFactorization)
	}

	var U, V mat.Dense
	svd.UTo(&U)
	svd.VTo(&V)
	s := svd.Values(nil)

	// x = V · diag(1/s) · Uᵗ · b, dropping the directions below the rank cutoff
	var bPrime mat.VecDense
	bPrime.MulVec(U.T(), b)
	rank := 0
	for i := range s {
		if s[i] > rankTolerance*s[0] {
			bPrime.SetVec(i, bPrime.AtVec(i)/s[i])
			rank++
		} else {
			bPrime.SetVec(i, 0)
		}
	}
	var x mat.VecDense
	x.MulVec(&V, &bPrime)

	var r mat.VecDense
	r.MulVec(A, &x)
	r.SubVec(&r, b)
	return &x, mat.Dot(&r, &r), rank, nil
}

// smallestRightSingularVector returns the unit vector minimizing ||A·x||.
func smallestRightSingularVector(A mat.Matrix) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDFullV); !ok {
		return nil, errors.WithStack(ErrFactorization)
	}
	var V mat.Dense
	svd.VTo(&V)

	// gonum orders singular values decreasingly; with fewer rows than columns
	// the trailing columns of the full V span the null space.
	_, cols := V.Dims()
	return mat.Col(nil, cols-1, &V), nil
}
