package imports

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"twoview/photogrammetry"
)

const markersTSV = "0\t0\t0\t0\t0\n0\t1\t1\t0\t0\n0\t2\t1\t1\t0\n0\t3\t0\t1\t0\n"

const matchesTSV = "10\t20\t12\t20\n30\t40\t33\t40\n"

const projectJSONText = `{
	"config": {"iterations": 50, "seed": 9, "workers": 2},
	"markers": "markers.tsv",
	"matches": "data/matches.tsv",
	"views": [
		{"name": "left", "detections": [{"id": 0, "corners": [[1, 2], [3, 4], [5, 6], [7, 8]]}]},
		{"name": "right", "detections": []}
	]
}`

func writeProject(t *testing.T, project string) string {
	t.Helper()
	dir := t.TempDir()
	test.That(t, os.Mkdir(filepath.Join(dir, "data"), 0o755), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "markers.tsv"), []byte(markersTSV), 0o644), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "data", "matches.tsv"), []byte(matchesTSV), 0o644), test.ShouldBeNil)
	projectFile := filepath.Join(dir, "project.json")
	test.That(t, os.WriteFile(projectFile, []byte(project), 0o644), test.ShouldBeNil)
	return projectFile
}

func TestReadProject(t *testing.T) {
	project, err := ReadProject(writeProject(t, projectJSONText))
	test.That(t, err, test.ShouldBeNil)

	expected := DefaultConfig()
	expected.Iterations = 50
	expected.Seed = 9
	expected.Workers = 2
	test.That(t, project.Config, test.ShouldResemble, expected)

	test.That(t, project.Markers, test.ShouldHaveLength, 1)
	test.That(t, project.Markers[0][2].X, test.ShouldEqual, 1.)
	test.That(t, project.Points1, test.ShouldResemble, []r2.Point{{X: 10, Y: 20}, {X: 30, Y: 40}})
	test.That(t, project.Points2, test.ShouldResemble, []r2.Point{{X: 12, Y: 20}, {X: 33, Y: 40}})

	test.That(t, project.Views[0].Name, test.ShouldEqual, "left")
	detections, err := project.Views[0].Detector.Detect(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, detections, test.ShouldHaveLength, 1)
	test.That(t, detections[0].Corners[3], test.ShouldResemble, r2.Point{X: 7, Y: 8})

	detections, err = project.Views[1].Detector.Detect(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, detections, test.ShouldBeEmpty)

	opts := project.Config.RansacOptions()
	test.That(t, opts.Iterations, test.ShouldEqual, 50)
	test.That(t, opts.Seed, test.ShouldEqual, uint64(9))
	test.That(t, opts.Workers, test.ShouldEqual, 2)
	test.That(t, opts.Threshold, test.ShouldEqual, photogrammetry.DefaultInlierThreshold)
}

func TestReadProjectInvalid(t *testing.T) {
	for name, tc := range map[string]struct {
		project  string
		expected string
	}{
		"malformed":     {`{"views": [`, "parsing"},
		"one view":      {`{"markers": "markers.tsv", "matches": "data/matches.tsv", "views": [{"name": "a"}]}`, "expected 2 views, got 1"},
		"missing file":  {`{"markers": "nothing.tsv", "matches": "data/matches.tsv", "views": [{"name": "a"}, {"name": "b"}]}`, "nothing.tsv"},
		"no matches":    {`{"markers": "markers.tsv", "views": [{"name": "a"}, {"name": "b"}]}`, "not found"},
		"bad config":    {`{"config": {"iterations": -1}, "views": [{"name": "a"}, {"name": "b"}]}`, "iterations must be non-negative"},
		"short corners": {`{"markers": "markers.tsv", "matches": "data/matches.tsv", "views": [{"name": "a", "detections": [{"id": 2, "corners": [[0, 0]]}]}, {"name": "b"}]}`, "marker 2 has 1 corners"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadProject(writeProject(t, tc.project))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.expected)
		})
	}

	_, err := ReadProject(filepath.Join(t.TempDir(), "absent.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

const calibratedProjectJSON = `{
	"markers": "markers.tsv",
	"matches": "data/matches.tsv",
	"views": [
		{
			"name": "left",
			"intrinsics": {"height": 480, "width": 640, "cameraMatrix": {"shape": {"row": 3, "col": 3}, "data": [500, 0, 320, 0, 500, 240, 0, 0, 1]}},
			"extrinsics": {"matrix": {"shape": {"row": 4, "col": 4}, "data": [1, 0, 0, 2, 0, 1, 0, 0, 0, 0, 1, 10, 0, 0, 0, 1]}}
		},
		{"name": "right", "detections": []}
	]
}`

func TestReadProjectCalibration(t *testing.T) {
	project, err := ReadProject(writeProject(t, calibratedProjectJSON))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, project.Views[1].Calibration, test.ShouldBeNil)

	calibration := project.Views[0].Calibration
	test.That(t, calibration, test.ShouldNotBeNil)
	test.That(t, calibration.Center(), test.ShouldResemble, r3.Vector{X: -2, Y: 0, Z: -10})

	// K·[R|t] divided by t_z
	projMat := calibration.ProjectionMatrix()
	test.That(t, projMat.At(2, 3), test.ShouldEqual, 1.)
	test.That(t, mat.EqualApprox(projMat, mat.NewDense(3, 4, []float64{
		50, 0, 32, 100,
		0, 50, 24, 0,
		0, 0, 0.1, 1,
	}), 1e-12), test.ShouldBeTrue)

	for name, view := range map[string]string{
		"extrinsics only": `{"name": "a", "extrinsics": {"matrix": {"shape": {"row": 3, "col": 4}, "data": [1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0]}}}`,
		"bad camera":      `{"name": "a", "intrinsics": {"cameraMatrix": {"shape": {"row": 2, "col": 2}, "data": [1, 0, 0, 1]}}, "extrinsics": {"matrix": {"shape": {"row": 3, "col": 4}, "data": [1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0]}}}`,
		"bad extrinsics":  `{"name": "a", "intrinsics": {"cameraMatrix": {"shape": {"row": 3, "col": 3}, "data": [1, 0, 0, 0, 1, 0, 0, 0, 1]}}, "extrinsics": {"matrix": {"shape": {"row": 3, "col": 3}, "data": [1, 0, 0, 0, 1, 0, 0, 0, 1]}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadProject(writeProject(t, `{"markers": "markers.tsv", "matches": "data/matches.tsv", "views": [`+view+`, {"name": "b"}]}`))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, `view "a"`)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	test.That(t, DefaultConfig().Validate(), test.ShouldBeNil)

	config := Config{
		Iterations:             -3,
		Threshold:              math.NaN(),
		SampleSize:             4,
		Workers:                0,
		TriangulationThreshold: math.Inf(1),
	}
	err := config.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 5)

	config = DefaultConfig()
	config.Workers = 0
	test.That(t, multierr.Errors(config.Validate()), test.ShouldHaveLength, 1)
}

func TestResolvePath(t *testing.T) {
	test.That(t, resolvePath("/data/project.json", "m.tsv"), test.ShouldEqual, "/data/m.tsv")
	test.That(t, resolvePath("/data/project.json", "/abs/m.tsv"), test.ShouldEqual, "/abs/m.tsv")
	test.That(t, resolvePath("/data/project.json", ""), test.ShouldEqual, "")

	ok, err := exists(t.TempDir())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	ok, err = exists(filepath.Join(t.TempDir(), "nope"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)
}
