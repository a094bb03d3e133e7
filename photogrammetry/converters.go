package photogrammetry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

func FormatMatrixPrint(matrix mat.Matrix) fmt.Formatter {
	return mat.Formatted(matrix, mat.Prefix("    "), mat.Squeeze())
}

func roundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

func Degrees2Rad(deg float64) float64 {
	res := deg * math.Pi / 180
	return roundFloat(res, 10)
}

// RotateXAxis returns the rotation of angle radians around the X axis.
func RotateXAxis(angle float64) *mat.Dense {
	c, s := math.Cos(angle), math.Sin(angle)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	})
}

// RotateYAxis returns the rotation of angle radians around the Y axis.
func RotateYAxis(angle float64) *mat.Dense {
	c, s := math.Cos(angle), math.Sin(angle)
	return mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
}

// Extrinsics4x4 assembles [R|t] from a rotation and a translation, padded
// with the homogeneous row.
func Extrinsics4x4(rotation mat.Matrix, trans mat.Vector) *mat.Dense {
	extrinsics := mat.NewDense(4, 4, nil)
	for i := range 3 {
		for j := range 3 {
			extrinsics.Set(i, j, rotation.At(i, j))
		}
		extrinsics.Set(i, 3, trans.AtVec(i))
	}
	extrinsics.Set(3, 3, 1)
	return extrinsics
}

// GetCameraWorldsCoordinates returns the camera center -Rᵗ·t.
func GetCameraWorldsCoordinates(rotation mat.Matrix, trans mat.Vector) mat.Vector {
	var coordinates mat.VecDense
	coordinates.MulVec(rotation.T(), trans)
	coordinates.ScaleVec(-1, &coordinates)
	return &coordinates
}
