package photogrammetry

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestProjectionSystem(t *testing.T) {
	points2d := []r2.Point{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}, {X: 7, Y: 8}, {X: 9, Y: 10}, {X: 11, Y: 12}}
	points3d := []r3.Vector{{X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 1}, {X: 2, Y: 3, Z: 4}}

	A, b, err := ProjectionSystem(points2d, points3d)
	test.That(t, err, test.ShouldBeNil)
	rows, cols := A.Dims()
	test.That(t, rows, test.ShouldEqual, 12)
	test.That(t, cols, test.ShouldEqual, 11)
	test.That(t, b.Len(), test.ShouldEqual, 12)

	// last point: u = 11, v = 12, X = (2, 3, 4)
	test.That(t, mat.Row(nil, 10, A), test.ShouldResemble, []float64{2, 3, 4, 1, 0, 0, 0, 0, -22, -33, -44})
	test.That(t, mat.Row(nil, 11, A), test.ShouldResemble, []float64{0, 0, 0, 0, 2, 3, 4, 1, -24, -36, -48})
	test.That(t, b.AtVec(10), test.ShouldEqual, 11.)
	test.That(t, b.AtVec(11), test.ShouldEqual, 12.)

	_, _, err = ProjectionSystem(points2d[:5], points3d[:5])
	test.That(t, errors.Is(err, ErrTooFewPoints), test.ShouldBeTrue)

	_, _, err = ProjectionSystem(points2d, points3d[:5])
	test.That(t, errors.Is(err, ErrLengthMismatch), test.ShouldBeTrue)
}

func TestFundamentalSystem(t *testing.T) {
	points1 := make([]r2.Point, 9)
	points2 := make([]r2.Point, 9)
	for i := range points1 {
		points1[i] = r2.Point{X: float64(i), Y: float64(2 * i)}
		points2[i] = r2.Point{X: float64(i + 1), Y: 3}
	}

	A, err := FundamentalSystem(points1, points2)
	test.That(t, err, test.ShouldBeNil)
	rows, cols := A.Dims()
	test.That(t, rows, test.ShouldEqual, 9)
	test.That(t, cols, test.ShouldEqual, 9)
	// u1 = 4, v1 = 8, u2 = 5, v2 = 3
	test.That(t, mat.Row(nil, 4, A), test.ShouldResemble, []float64{20, 40, 5, 12, 24, 3, 4, 8, 1})

	_, err = FundamentalSystem(points1[:7], points2[:7])
	test.That(t, errors.Is(err, ErrTooFewPoints), test.ShouldBeTrue)

	_, err = FundamentalSystem(points1, points2[:8])
	test.That(t, errors.Is(err, ErrLengthMismatch), test.ShouldBeTrue)
}

func TestSolveLeastSquares(t *testing.T) {
	t.Run("overdetermined", func(t *testing.T) {
		A := mat.NewDense(2, 1, []float64{1, 1})
		b := mat.NewVecDense(2, []float64{0, 2})
		x, residual, rank, err := solveLeastSquares(A, b)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, rank, test.ShouldEqual, 1)
		test.That(t, x.AtVec(0), test.ShouldAlmostEqual, 1, 1e-12)
		test.That(t, residual, test.ShouldAlmostEqual, 2, 1e-12)
	})

	t.Run("exact", func(t *testing.T) {
		A := mat.NewDense(3, 2, []float64{1, 0, 0, 2, 1, 1})
		b := mat.NewVecDense(3, []float64{3, 4, 5})
		x, residual, rank, err := solveLeastSquares(A, b)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, rank, test.ShouldEqual, 2)
		test.That(t, x.AtVec(0), test.ShouldAlmostEqual, 3, 1e-12)
		test.That(t, x.AtVec(1), test.ShouldAlmostEqual, 2, 1e-12)
		test.That(t, residual, test.ShouldAlmostEqual, 0, 1e-20)
	})

	t.Run("rank deficient", func(t *testing.T) {
		A := mat.NewDense(3, 2, []float64{1, 1, 2, 2, 3, 3})
		b := mat.NewVecDense(3, []float64{2, 4, 6})
		x, residual, rank, err := solveLeastSquares(A, b)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, rank, test.ShouldEqual, 1)
		// minimum norm solution
		test.That(t, x.AtVec(0), test.ShouldAlmostEqual, 1, 1e-12)
		test.That(t, x.AtVec(1), test.ShouldAlmostEqual, 1, 1e-12)
		test.That(t, residual, test.ShouldAlmostEqual, 0, 1e-20)
	})
}

func TestSmallestRightSingularVectorTall(t *testing.T) {
	// rank 3 with four columns: the null space is spanned by (1, 1, -1, -1)
	rows := 4000
	A := mat.NewDense(rows, 4, nil)
	for i := range rows {
		x, y, z := float64(i%17), float64(i%23), float64(i%7)
		A.SetRow(i, []float64{x, y, z, x + y - z})
	}
	v, err := smallestRightSingularVector(A)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldHaveLength, 4)

	scale := v[0]
	test.That(t, v[1]/scale, test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, v[2]/scale, test.ShouldAlmostEqual, -1, 1e-9)
	test.That(t, v[3]/scale, test.ShouldAlmostEqual, -1, 1e-9)
}

func TestSmallestRightSingularVector(t *testing.T) {
	// null space of the two rows is spanned by (1, 1, -1)
	A := mat.NewDense(2, 3, []float64{1, 0, 1, 0, 1, 1})
	v, err := smallestRightSingularVector(A)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldHaveLength, 3)

	var product mat.VecDense
	product.MulVec(A, mat.NewVecDense(3, v))
	test.That(t, product.AtVec(0), test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, product.AtVec(1), test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, mat.Norm(mat.NewVecDense(3, v), 2), test.ShouldAlmostEqual, 1, 1e-12)
}
