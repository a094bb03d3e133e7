package photogrammetry

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func scaleHomogeneousPoint(point mat.Vector) mat.Vector {
	var vector mat.VecDense
	vector.ScaleVec(1/point.AtVec(point.Len()-1), point)
	return &vector
}

// ProjectionMatrix returns K·[R|t] from a 3x3 camera matrix and a 3x4 or 4x4 extrinsics matrix.
func ProjectionMatrix(intrinsics mat.Matrix, extrinsics mat.Matrix) *mat.Dense {
	extrinsicsDense := mat.DenseCopyOf(extrinsics)
	extrinsics = extrinsicsDense.Slice(0, 3, 0, 4)
	var projMat mat.Dense
	projMat.Mul(intrinsics, extrinsics)

	return &projMat
}

// NormalizeProjectionMatrix scales projMat in place so that M[2][3] == 1,
// the scale SolveProjectionMatrix produces and Triangulate thresholds against.
func NormalizeProjectionMatrix(projMat *mat.Dense) *mat.Dense {
	projMat.Scale(1/projMat.At(2, 3), projMat)
	return projMat
}

// Project maps a world point through a 3x4 projection matrix to pixel coordinates.
func Project(projMat mat.Matrix, position r3.Vector) r2.Point {
	var point mat.VecDense
	point.MulVec(projMat, mat.NewVecDense(4, []float64{position.X, position.Y, position.Z, 1}))

	scaled := scaleHomogeneousPoint(&point)
	return r2.Point{X: scaled.AtVec(0), Y: scaled.AtVec(1)}
}

// TriangulatePoint solves the homogeneous DLT for a point seen in two or more views.
func TriangulatePoint(projPoints []ProjPoint) (r3.Vector, error) {
	if len(projPoints) < 2 {
		return r3.Vector{}, errors.Wrapf(ErrTooFewPoints, "got %d views, need at least 2", len(projPoints))
	}

	A := mat.NewDense(2*len(projPoints), 4, nil)
	for i, projPoint := range projPoints {
		if rows, cols := projPoint.Mat.Dims(); rows != 3 || cols != 4 {
			return r3.Vector{}, errors.Wrapf(ErrBadShape, "projection matrix of view %d is %dx%d", i, rows, cols)
		}
		projMat := mat.DenseCopyOf(projPoint.Mat)
		point := projPoint.Point

		var row1, row2 mat.VecDense
		row1.ScaleVec(point.Y, projMat.RowView(2))
		row1.SubVec(&row1, projMat.RowView(1))

		row2.ScaleVec(point.X, projMat.RowView(2))
		row2.SubVec(projMat.RowView(0), &row2)

		A.SetRow(2*i, row1.RawVector().Data)
		A.SetRow(2*i+1, row2.RawVector().Data)
	}

	X, err := smallestRightSingularVector(A)
	if err != nil {
		return r3.Vector{}, err
	}

	scaledX := scaleHomogeneousPoint(mat.NewVecDense(4, X))
	return r3.Vector{X: scaledX.AtVec(0), Y: scaledX.AtVec(1), Z: scaledX.AtVec(2)}, nil
}
