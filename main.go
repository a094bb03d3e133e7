package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"twoview/imports"
	sph "twoview/photogrammetry"
)

func newLogger() (*zap.SugaredLogger, error) {
	config := zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// projectFromScene turns a synthetic scene into a project: consecutive groups
// of four true points act as markers seen by both cameras.
func projectFromScene(scene *sph.Scene, numPoints int, config imports.Config) *imports.Project {
	project := &imports.Project{
		Config:  config,
		Markers: make(map[int][imports.CornersPerMarker]r3.Vector),
		Points1: scene.Points1,
		Points2: scene.Points2,
	}
	var left, right imports.StaticDetector
	for id := 0; (id+1)*imports.CornersPerMarker <= numPoints; id++ {
		var corners [imports.CornersPerMarker]r3.Vector
		var corners1, corners2 [imports.CornersPerMarker]r2.Point
		for j := range imports.CornersPerMarker {
			index := id*imports.CornersPerMarker + j
			corners[j] = scene.Points3D[index]
			corners1[j] = scene.Points1[index]
			corners2[j] = scene.Points2[index]
		}
		project.Markers[id] = corners
		left = append(left, imports.Marker{ID: id, Corners: corners1})
		right = append(right, imports.Marker{ID: id, Corners: corners2})
	}
	project.Views = [2]imports.View{{Name: "left", Detector: left}, {Name: "right", Detector: right}}
	return project
}

func main() {
	logger, err := newLogger()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	var project *imports.Project
	if len(os.Args) > 1 {
		project, err = imports.ReadProject(os.Args[1])
		if err != nil {
			logger.Fatal(err)
		}
	} else {
		sceneOpts := sph.DefaultSceneOptions()
		sceneOpts.NumOutliers = 4
		sceneOpts.Angle = 10
		sceneOpts.Baseline = 2
		logger.Infof("No project file given, reconstructing a synthetic scene of %d points and %d outliers", sceneOpts.NumPoints, sceneOpts.NumOutliers)
		project = projectFromScene(sph.NewSyntheticScene(sceneOpts), sceneOpts.NumPoints, imports.DefaultConfig())
	}

	app := NewApp(logger)
	export, err := app.Reconstruct(context.Background(), project)
	if err != nil {
		logger.Fatal(err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		logger.Fatal(err)
	}
}
