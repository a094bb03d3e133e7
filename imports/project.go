package imports

import (
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"twoview/photogrammetry"
)

type Config struct {
	Iterations             int     `json:"iterations"`
	Threshold              float64 `json:"threshold"`
	SampleSize             int     `json:"sampleSize"`
	Seed                   uint64  `json:"seed"`
	Normalize              bool    `json:"normalize"`
	Workers                int     `json:"workers"`
	TriangulationThreshold float64 `json:"triangulationThreshold"`
}

func DefaultConfig() Config {
	return Config{
		Iterations:             1000,
		Threshold:              photogrammetry.DefaultInlierThreshold,
		SampleSize:             photogrammetry.DefaultSampleSize,
		Workers:                1,
		TriangulationThreshold: photogrammetry.DefaultTriangulationThreshold,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var err error
	if c.Iterations < 0 {
		err = multierr.Append(err, errors.Errorf("iterations must be non-negative, got %d", c.Iterations))
	}
	if !(c.Threshold > 0) {
		err = multierr.Append(err, errors.Errorf("threshold must be positive, got %v", c.Threshold))
	}
	if c.SampleSize < photogrammetry.MinFundamentalPoints {
		err = multierr.Append(err, errors.Errorf("sampleSize must be at least %d, got %d", photogrammetry.MinFundamentalPoints, c.SampleSize))
	}
	if c.Workers < 1 {
		err = multierr.Append(err, errors.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if !(c.TriangulationThreshold > 0) || math.IsInf(c.TriangulationThreshold, 0) {
		err = multierr.Append(err, errors.Errorf("triangulationThreshold must be positive and finite, got %v", c.TriangulationThreshold))
	}
	return err
}

func (c Config) RansacOptions() photogrammetry.RansacOptions {
	return photogrammetry.RansacOptions{
		Iterations: c.Iterations,
		Threshold:  c.Threshold,
		SampleSize: c.SampleSize,
		Seed:       c.Seed,
		Normalize:  c.Normalize,
		Workers:    c.Workers,
	}
}

type MarkerJSON struct {
	ID      int          `json:"id"`
	Corners [][2]float64 `json:"corners"`
}

type ViewJSON struct {
	Name       string                     `json:"name"`
	Detections []MarkerJSON               `json:"detections"`
	Intrinsics *photogrammetry.Intrinsics `json:"intrinsics,omitempty"`
	Extrinsics *photogrammetry.Extrinsics `json:"extrinsics,omitempty"`
}

type projectJSON struct {
	Config  *Config    `json:"config"`
	Markers string     `json:"markers"`
	Views   []ViewJSON `json:"views"`
	Matches string     `json:"matches"`
}

// Calibration holds the known camera of a view: a 3x3 camera matrix and a
// 3x4 or 4x4 [R|t] extrinsics matrix.
type Calibration struct {
	CameraMatrix *mat.Dense
	Extrinsics   *mat.Dense
}

// ProjectionMatrix returns K·[R|t] scaled so that M[2][3] == 1.
func (c *Calibration) ProjectionMatrix() *mat.Dense {
	return photogrammetry.NormalizeProjectionMatrix(photogrammetry.ProjectionMatrix(c.CameraMatrix, c.Extrinsics))
}

// Center returns the camera position in world coordinates.
func (c *Calibration) Center() r3.Vector {
	rotation := c.Extrinsics.Slice(0, 3, 0, 3)
	trans := mat.NewVecDense(3, mat.Col(nil, 3, c.Extrinsics)[:3])
	center := photogrammetry.GetCameraWorldsCoordinates(rotation, trans)
	return r3.Vector{X: center.AtVec(0), Y: center.AtVec(1), Z: center.AtVec(2)}
}

// View is one camera of the project. Calibrated views skip marker detection.
type View struct {
	Name        string
	Detector    MarkerDetector
	Calibration *Calibration
}

// Project gathers everything a two view reconstruction needs.
type Project struct {
	Config  Config
	Markers map[int][CornersPerMarker]r3.Vector
	Views   [2]View
	Points1 []r2.Point
	Points2 []r2.Point
}

// ReadProject loads a JSON project file. The marker and match files it names
// are read relative to the project directory; missing config fields keep
// their DefaultConfig value.
func ReadProject(projectFile string) (*Project, error) {
	jsonFile, err := os.Open(projectFile)
	if err != nil {
		return nil, err
	}
	defer jsonFile.Close()

	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, err
	}
	config := DefaultConfig()
	raw := projectJSON{Config: &config}
	if err := json.Unmarshal(byteValue, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", projectFile)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config in %s", projectFile)
	}
	if len(raw.Views) != 2 {
		return nil, errors.Errorf("%s: expected 2 views, got %d", projectFile, len(raw.Views))
	}

	project := &Project{Config: config}
	for i, view := range raw.Views {
		detections, err := view.markers()
		if err != nil {
			return nil, errors.Wrapf(err, "view %q", view.Name)
		}
		calibration, err := view.calibration()
		if err != nil {
			return nil, errors.Wrapf(err, "view %q", view.Name)
		}
		project.Views[i] = View{Name: view.Name, Detector: StaticDetector(detections), Calibration: calibration}
	}

	for _, file := range []string{raw.Markers, raw.Matches} {
		path := resolvePath(projectFile, file)
		ok, err := exists(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Errorf("%s: file %q not found", projectFile, path)
		}
	}
	if project.Markers, err = ReadMarkersCSV(resolvePath(projectFile, raw.Markers)); err != nil {
		return nil, err
	}
	if project.Points1, project.Points2, err = ReadMatchesCSV(resolvePath(projectFile, raw.Matches)); err != nil {
		return nil, err
	}
	return project, nil
}

func (v ViewJSON) markers() ([]Marker, error) {
	detections := make([]Marker, len(v.Detections))
	for i, detection := range v.Detections {
		if len(detection.Corners) != CornersPerMarker {
			return nil, errors.Errorf("marker %d has %d corners", detection.ID, len(detection.Corners))
		}
		detections[i].ID = detection.ID
		for j, corner := range detection.Corners {
			detections[i].Corners[j] = r2.Point{X: corner[0], Y: corner[1]}
		}
	}
	return detections, nil
}

func (v ViewJSON) calibration() (*Calibration, error) {
	if v.Intrinsics == nil && v.Extrinsics == nil {
		return nil, nil
	}
	if v.Intrinsics == nil || v.Extrinsics == nil {
		return nil, errors.New("intrinsics and extrinsics must be given together")
	}
	cameraMatrix, err := v.Intrinsics.CameraMatrix.Dense()
	if err != nil {
		return nil, errors.Wrap(err, "camera matrix")
	}
	if rows, cols := cameraMatrix.Dims(); rows != 3 || cols != 3 {
		return nil, errors.Wrapf(photogrammetry.ErrBadShape, "camera matrix is %dx%d", rows, cols)
	}
	extrinsics, err := v.Extrinsics.Matrix.Dense()
	if err != nil {
		return nil, errors.Wrap(err, "extrinsics")
	}
	if rows, cols := extrinsics.Dims(); (rows != 3 && rows != 4) || cols != 4 {
		return nil, errors.Wrapf(photogrammetry.ErrBadShape, "extrinsics matrix is %dx%d", rows, cols)
	}
	return &Calibration{CameraMatrix: cameraMatrix, Extrinsics: extrinsics}, nil
}
