package main

import (
	sph "twoview/photogrammetry"
)

type Pos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Export JSON structs

type ViewJSON struct {
	Name       string         `json:"name"`
	Projection sph.MatrixInfo `json:"projection"`
	Residual   float64        `json:"residual"`
	Center     *Position      `json:"center,omitempty"`
}

type RansacJSON struct {
	Fundamental      sph.MatrixInfo `json:"fundamental"`
	Residual         float64        `json:"residual"`
	Inliers          int            `json:"inliers"`
	Matches          int            `json:"matches"`
	BestInlierCounts []int          `json:"bestInlierCounts"`
	BestResiduals    []float64      `json:"bestResiduals"`
}

type LandmarkJSON struct {
	Position Position `json:"position"`
	Left     Pos      `json:"left"`
	Right    Pos      `json:"right"`
}

type ExportJSON struct {
	Views     [2]ViewJSON    `json:"views"`
	Ransac    RansacJSON     `json:"ransac"`
	Landmarks []LandmarkJSON `json:"landmarks"`
}
