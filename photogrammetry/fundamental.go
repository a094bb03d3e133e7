package photogrammetry

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// EstimateFundamentalMatrix fits a rank 2 fundamental matrix F to at least
// eight correspondences with the linear eight point algorithm, so that
// x2ᵗ·F·x1 ≈ 0. It returns F, scaled to unit Frobenius norm before the rank
// constraint, and the root of the summed squared epipolar values.
//
// Degenerate configurations are not reported as errors; they yield an
// arbitrary member of the solution space and a large residual.
func EstimateFundamentalMatrix(points1 []r2.Point, points2 []r2.Point) (*mat.Dense, float64, error) {
	F, err := fitFundamental(points1, points2)
	if err != nil {
		return nil, 0, err
	}
	return F, EpipolarResidual(F, points1, points2), nil
}

// EstimateFundamentalMatrixNormalized fits F on coordinates normalized by
// NormalizeCoordinates and maps it back to pixel coordinates as T2ᵗ·F·T1.
// The residual is measured in pixel coordinates.
func EstimateFundamentalMatrixNormalized(points1 []r2.Point, points2 []r2.Point) (*mat.Dense, float64, error) {
	if err := checkCorrespondences(len(points1), len(points2), MinFundamentalPoints); err != nil {
		return nil, 0, err
	}
	norm1, T1 := NormalizeCoordinates(points1)
	norm2, T2 := NormalizeCoordinates(points2)

	F, err := fitFundamental(norm1, norm2)
	if err != nil {
		return nil, 0, err
	}
	F.Mul(T2.T(), F)
	F.Mul(F, T1)
	return F, EpipolarResidual(F, points1, points2), nil
}

func fitFundamental(points1 []r2.Point, points2 []r2.Point) (*mat.Dense, error) {
	A, err := FundamentalSystem(points1, points2)
	if err != nil {
		return nil, err
	}

	f, err := smallestRightSingularVector(A)
	if err != nil {
		return nil, err
	}
	F := mat.NewDense(3, 3, f)
	if err := enforceRank2(F); err != nil {
		return nil, err
	}
	return F, nil
}

// enforceRank2 replaces F by its closest rank 2 matrix in Frobenius norm.
func enforceRank2(F *mat.Dense) error {
	var svd mat.SVD
	if ok := svd.Factorize(F, mat.SVDFull); !ok {
		return errors.Wrap(ErrFactorization, "rank 2 constraint")
	}
	var U, V mat.Dense
	svd.UTo(&U)
	svd.VTo(&V)
	s := svd.Values(nil)
	s[len(s)-1] = 0

	F.Product(&U, mat.NewDiagDense(len(s), s), V.T())
	return nil
}

// EpipolarValue returns the signed algebraic epipolar error x2ᵗ·F·x1.
func EpipolarValue(F mat.Matrix, p1 r2.Point, p2 r2.Point) float64 {
	x1 := [3]float64{p1.X, p1.Y, 1}
	x2 := [3]float64{p2.X, p2.Y, 1}
	var value float64
	for i := range 3 {
		for j := range 3 {
			value += x2[i] * F.At(i, j) * x1[j]
		}
	}
	return value
}

// EpipolarResidual returns sqrt(Σ (x2ᵗ·F·x1)²) over the correspondences.
func EpipolarResidual(F mat.Matrix, points1 []r2.Point, points2 []r2.Point) float64 {
	var sum float64
	for i := range points1 {
		value := EpipolarValue(F, points1[i], points2[i])
		sum += value * value
	}
	return math.Sqrt(sum)
}

// NormalizeCoordinates translates points to zero mean and scales each axis
// by the reciprocal of its standard deviation. T = T_scale·T_offset maps the
// homogeneous input points onto the returned ones.
func NormalizeCoordinates(points []r2.Point) ([]r2.Point, *mat.Dense) {
	us := make([]float64, len(points))
	vs := make([]float64, len(points))
	for i, p := range points {
		us[i], vs[i] = p.X, p.Y
	}
	cu, su := stat.PopMeanStdDev(us, nil)
	cv, sv := stat.PopMeanStdDev(vs, nil)
	scaleU, scaleV := 1.0, 1.0
	if su > 0 {
		scaleU = 1 / su
	}
	if sv > 0 {
		scaleV = 1 / sv
	}

	offset := mat.NewDense(3, 3, []float64{
		1, 0, -cu,
		0, 1, -cv,
		0, 0, 1,
	})
	scale := mat.NewDense(3, 3, []float64{
		scaleU, 0, 0,
		0, scaleV, 0,
		0, 0, 1,
	})
	var T mat.Dense
	T.Mul(scale, offset)

	normalized := make([]r2.Point, len(points))
	for i, p := range points {
		normalized[i] = r2.Point{X: (p.X - cu) * scaleU, Y: (p.Y - cv) * scaleV}
	}
	return normalized, &T
}
