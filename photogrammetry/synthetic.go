package photogrammetry

import (
	"math/rand/v2"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// SceneOptions describes a two camera rig looking at random points in a
// cube centered on the world origin. Both cameras sit Distance away from the
// origin; the second one is shifted by Baseline along X and turned by Angle
// degrees around the Y axis.
type SceneOptions struct {
	NumPoints      int
	HalfExtent     float64
	Focal          float64
	PrincipalPoint r2.Point
	Distance       float64
	Baseline       float64
	Angle          float64
	// Noise is the standard deviation of the gaussian pixel noise, in pixels.
	Noise float64
	// NumOutliers correspondences are appended, their second view point moved by OutlierOffset.
	NumOutliers   int
	OutlierOffset r2.Point
	Seed          uint64
}

func DefaultSceneOptions() SceneOptions {
	return SceneOptions{
		NumPoints:     20,
		HalfExtent:    2,
		Focal:         500,
		Distance:      10,
		Baseline:      1,
		OutlierOffset: r2.Point{X: 60, Y: -45},
	}
}

type Scene struct {
	Points3D []r3.Vector
	Points1  []r2.Point
	Points2  []r2.Point
	// M1 and M2 are scaled so that M[2][3] == 1.
	M1 *mat.Dense
	M2 *mat.Dense
}

func NewSyntheticScene(opts SceneOptions) *Scene {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	intrinsics := mat.NewDense(3, 3, []float64{
		opts.Focal, 0, opts.PrincipalPoint.X,
		0, opts.Focal, opts.PrincipalPoint.Y,
		0, 0, 1,
	})
	extrinsics1 := Extrinsics4x4(RotateYAxis(0), mat.NewVecDense(3, []float64{0, 0, opts.Distance}))
	extrinsics2 := Extrinsics4x4(RotateYAxis(Degrees2Rad(opts.Angle)), mat.NewVecDense(3, []float64{-opts.Baseline, 0, opts.Distance}))

	scene := &Scene{
		M1: NormalizeProjectionMatrix(ProjectionMatrix(intrinsics, extrinsics1)),
		M2: NormalizeProjectionMatrix(ProjectionMatrix(intrinsics, extrinsics2)),
	}

	uniform := func() float64 { return (2*rng.Float64() - 1) * opts.HalfExtent }
	noise := func() r2.Point {
		if opts.Noise == 0 {
			return r2.Point{}
		}
		return r2.Point{X: rng.NormFloat64() * opts.Noise, Y: rng.NormFloat64() * opts.Noise}
	}
	for range opts.NumPoints + opts.NumOutliers {
		point := r3.Vector{X: uniform(), Y: uniform(), Z: uniform()}
		scene.Points3D = append(scene.Points3D, point)
		scene.Points1 = append(scene.Points1, Project(scene.M1, point).Add(noise()))
		scene.Points2 = append(scene.Points2, Project(scene.M2, point).Add(noise()))
	}
	for i := opts.NumPoints; i < len(scene.Points2); i++ {
		scene.Points2[i] = scene.Points2[i].Add(opts.OutlierOffset)
	}
	return scene
}
