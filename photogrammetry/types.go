package photogrammetry

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

type Shape struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// MatrixInfo is the row-major JSON form of a dense matrix.
type MatrixInfo struct {
	Shape Shape     `json:"shape"`
	Data  []float64 `json:"data"`
}

func NewMatrixInfo(matrix mat.Matrix) MatrixInfo {
	rows, cols := matrix.Dims()
	data := make([]float64, 0, rows*cols)
	for i := range rows {
		for j := range cols {
			data = append(data, matrix.At(i, j))
		}
	}
	return MatrixInfo{Shape: Shape{Row: rows, Col: cols}, Data: data}
}

func (m MatrixInfo) Dense() (*mat.Dense, error) {
	if m.Shape.Row <= 0 || m.Shape.Col <= 0 || len(m.Data) != m.Shape.Row*m.Shape.Col {
		return nil, errors.Wrapf(ErrBadShape, "%dx%d matrix with %d values", m.Shape.Row, m.Shape.Col, len(m.Data))
	}
	data := make([]float64, len(m.Data))
	copy(data, m.Data)
	return mat.NewDense(m.Shape.Row, m.Shape.Col, data), nil
}

type Intrinsics struct {
	Height       int        `json:"height"`
	Width        int        `json:"width"`
	CameraMatrix MatrixInfo `json:"cameraMatrix"`
}

type Extrinsics struct {
	Matrix MatrixInfo `json:"matrix"`
}

// ProjPoint pairs an observation with the projection matrix of the view it was seen in.
type ProjPoint struct {
	Mat   mat.Matrix
	Point r2.Point
}
