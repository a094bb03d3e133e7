package imports

import (
	"image"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"twoview/photogrammetry"
)

const CornersPerMarker = 4

// Marker is one fiducial found in an image, its corners in detection order.
type Marker struct {
	ID      int
	Corners [CornersPerMarker]r2.Point
}

// MarkerDetector finds fiducial markers in an image.
type MarkerDetector interface {
	Detect(img image.Image) ([]Marker, error)
}

// StaticDetector returns detections computed ahead of time, whatever the image.
type StaticDetector []Marker

func (d StaticDetector) Detect(image.Image) ([]Marker, error) {
	return d, nil
}

// CollectCorrespondences pairs the corners of every detected marker whose ID
// is known with the matching world corners. Detection order is kept.
func CollectCorrespondences(detections []Marker, markers map[int][CornersPerMarker]r3.Vector) ([]r2.Point, []r3.Vector) {
	points2d := []r2.Point{}
	points3d := []r3.Vector{}
	for _, detection := range detections {
		corners, ok := markers[detection.ID]
		if !ok {
			continue
		}
		for j, corner := range detection.Corners {
			points2d = append(points2d, corner)
			points3d = append(points3d, corners[j])
		}
	}
	return points2d, points3d
}

// CalculateProjectionMatrix detects the markers of img and solves the
// projection matrix mapping their known world corners onto the image.
func CalculateProjectionMatrix(img image.Image, markers map[int][CornersPerMarker]r3.Vector, detector MarkerDetector) (*mat.Dense, float64, error) {
	detections, err := detector.Detect(img)
	if err != nil {
		return nil, 0, errors.Wrap(err, "marker detection failed")
	}
	points2d, points3d := CollectCorrespondences(detections, markers)
	if len(points2d) < photogrammetry.MinProjectionPoints {
		return nil, 0, errors.Wrapf(photogrammetry.ErrTooFewPoints,
			"%d usable corners from %d detected markers (known ids %v)", len(points2d), len(detections), knownIDs(markers))
	}
	return photogrammetry.SolveProjectionMatrix(points2d, points3d)
}

func knownIDs(markers map[int][CornersPerMarker]r3.Vector) []int {
	ids := make([]int, 0, len(markers))
	for id := range markers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
