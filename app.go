package main

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"twoview/imports"
	sph "twoview/photogrammetry"
)

// App struct
type App struct {
	logger *zap.SugaredLogger
}

// NewApp creates a new App application struct
func NewApp(logger *zap.SugaredLogger) *App {
	return &App{logger: logger}
}

// Reconstruct estimates the projection matrix of both views from their
// markers, the fundamental matrix from the matches, and triangulates the
// RANSAC inliers.
func (a *App) Reconstruct(ctx context.Context, project *imports.Project) (*ExportJSON, error) {
	var export ExportJSON
	var projMats [2]*mat.Dense
	for i, view := range project.Views {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if view.Calibration != nil {
			projMat := view.Calibration.ProjectionMatrix()
			center := view.Calibration.Center()
			a.logger.Infof("View %s: calibrated camera at (%g, %g, %g)", view.Name, center.X, center.Y, center.Z)
			projMats[i] = projMat
			export.Views[i] = ViewJSON{
				Name:       view.Name,
				Projection: sph.NewMatrixInfo(projMat),
				Center:     &Position{X: center.X, Y: center.Y, Z: center.Z},
			}
			continue
		}

		// images are not decoded here, detections come with the project
		projMat, residual, err := imports.CalculateProjectionMatrix(nil, project.Markers, view.Detector)
		if err != nil {
			return nil, errors.Wrapf(err, "projection matrix of view %q", view.Name)
		}
		a.logger.Infof("View %s: residual = %g\n%v", view.Name, residual, sph.FormatMatrixPrint(projMat))
		projMats[i] = projMat
		export.Views[i] = ViewJSON{Name: view.Name, Projection: sph.NewMatrixInfo(projMat), Residual: residual}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	trace := sph.NewTrace()
	opts := project.Config.RansacOptions()
	opts.Trace = trace
	opts.Logger = a.logger.Desugar().Named("ransac")
	ransac, err := sph.RansacFundamentalMatrix(project.Points1, project.Points2, opts)
	if err != nil {
		return nil, errors.Wrap(err, "fundamental matrix")
	}
	a.logger.Infow("fundamental matrix estimated",
		"iterations", opts.Iterations,
		"inliers", len(ransac.InlierIndices),
		"matches", len(project.Points1),
		"residual", ransac.Residual)
	a.logger.Debugf("F =\n%v", sph.FormatMatrixPrint(ransac.F))
	if len(ransac.InlierIndices) == 0 {
		a.logger.Warnf("no match agrees with the fundamental matrix, nothing to triangulate")
	}
	export.Ransac = RansacJSON{
		Fundamental:      sph.NewMatrixInfo(ransac.F),
		Residual:         ransac.Residual,
		Inliers:          len(ransac.InlierIndices),
		Matches:          len(project.Points1),
		BestInlierCounts: trace.BestInlierCounts(),
		BestResiduals:    trace.BestResiduals(),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	points3d, points1, points2, err := sph.Triangulate(ransac.Inliers1, ransac.Inliers2, projMats[0], projMats[1], project.Config.TriangulationThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "triangulation")
	}
	a.logger.Infof("Triangulated %d of %d inliers", len(points3d), len(ransac.Inliers1))

	export.Landmarks = make([]LandmarkJSON, len(points3d))
	for i, point := range points3d {
		export.Landmarks[i] = LandmarkJSON{
			Position: Position{X: point.X, Y: point.Y, Z: point.Z},
			Left:     Pos{X: points1[i].X, Y: points1[i].Y},
			Right:    Pos{X: points2[i].X, Y: points2[i].Y},
		}
	}
	return &export, nil
}
