package photogrammetry

import (
	"math"
	"math/rand/v2"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultInlierThreshold = 0.1
	DefaultSampleSize      = 9

	// fallback estimate used when no iteration runs or none finds an inlier
	placeholderSampleSize  = 9
	placeholderInlierCount = 29

	// iterations evaluated per worker before results are merged
	batchPerWorker = 16
)

type RansacOptions struct {
	// Iterations is the exact number of samples drawn. Zero returns the placeholder estimate.
	Iterations int
	// Threshold on |x2ᵗ·F·x1| below which a correspondence is an inlier. Defaults to 0.1.
	Threshold float64
	// SampleSize is the number of indices drawn with replacement per iteration. Defaults to 9.
	SampleSize int
	// Seed initializes the random source at the start of every run.
	Seed uint64
	// Normalize fits each sample on normalized coordinates.
	Normalize bool
	// Workers evaluating iterations concurrently. Results do not depend on it.
	Workers int
	// Trace, when set, is reset and then receives one entry per iteration.
	Trace  *Trace
	Logger *zap.Logger
}

func DefaultRansacOptions(iterations int) RansacOptions {
	return RansacOptions{
		Iterations: iterations,
		Threshold:  DefaultInlierThreshold,
		SampleSize: DefaultSampleSize,
		Workers:    1,
	}
}

func (o RansacOptions) withDefaults() (RansacOptions, error) {
	if o.Iterations < 0 {
		return o, errors.Wrapf(ErrInvalidOption, "negative iteration count %d", o.Iterations)
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultInlierThreshold
	}
	if o.Threshold < 0 || math.IsNaN(o.Threshold) {
		return o, errors.Wrapf(ErrInvalidOption, "inlier threshold %v", o.Threshold)
	}
	if o.SampleSize == 0 {
		o.SampleSize = DefaultSampleSize
	}
	if o.SampleSize < MinFundamentalPoints {
		return o, errors.Wrapf(ErrInvalidOption, "sample size %d is below %d", o.SampleSize, MinFundamentalPoints)
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o, nil
}

type RansacResult struct {
	F             *mat.Dense
	Inliers1      []r2.Point
	Inliers2      []r2.Point
	InlierIndices []int
	// Residual is EpipolarResidual of F over the inlier sets.
	Residual float64
	// Iterations actually evaluated.
	Iterations int
}

type ransacTrial struct {
	F        *mat.Dense
	residual float64
	inliers  []int
}

type fundamentalEstimator func(points1, points2 []r2.Point) (*mat.Dense, float64, error)

// RansacFundamentalMatrix robustly estimates the fundamental matrix relating
// points1 to points2. Every iteration fits F to SampleSize correspondences
// drawn with replacement and counts the correspondences with
// |x2ᵗ·F·x1| < Threshold; the candidate with the strictly largest count wins.
// Identical inputs and options always produce identical results.
func RansacFundamentalMatrix(points1 []r2.Point, points2 []r2.Point, opts RansacOptions) (*RansacResult, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := checkCorrespondences(len(points1), len(points2), 1); err != nil {
		return nil, err
	}
	if opts.Trace != nil {
		opts.Trace.Reset()
	}

	estimate := fundamentalEstimator(EstimateFundamentalMatrix)
	if opts.Normalize {
		estimate = EstimateFundamentalMatrixNormalized
	}

	placeholder, err := placeholderResult(points1, points2, estimate)
	if err != nil {
		return nil, err
	}
	if opts.Iterations == 0 {
		return placeholder, nil
	}

	n := len(points1)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	evaluate := func(sample []int) (ransacTrial, error) {
		sample1 := make([]r2.Point, len(sample))
		sample2 := make([]r2.Point, len(sample))
		for j, index := range sample {
			sample1[j] = points1[index]
			sample2[j] = points2[index]
		}
		F, residual, err := estimate(sample1, sample2)
		if err != nil {
			return ransacTrial{}, err
		}
		return ransacTrial{F: F, residual: residual, inliers: inlierIndices(F, points1, points2, opts.Threshold)}, nil
	}

	var best ransacTrial
	batchSize := opts.Workers * batchPerWorker
	samples := make([][]int, 0, batchSize)
	trials := make([]ransacTrial, batchSize)
	for start := 0; start < opts.Iterations; start += batchSize {
		// samples are drawn in iteration order whatever the worker count
		samples = samples[:0]
		for range min(batchSize, opts.Iterations-start) {
			sample := make([]int, opts.SampleSize)
			for j := range sample {
				sample[j] = rng.IntN(n)
			}
			samples = append(samples, sample)
		}

		if opts.Workers == 1 {
			for i, sample := range samples {
				if trials[i], err = evaluate(sample); err != nil {
					return nil, err
				}
			}
		} else {
			var g errgroup.Group
			g.SetLimit(opts.Workers)
			for i, sample := range samples {
				g.Go(func() error {
					trial, err := evaluate(sample)
					trials[i] = trial
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}
		}

		for i := range samples {
			trial := trials[i]
			if opts.Trace != nil {
				opts.Trace.Append(len(trial.inliers), trial.residual)
			}
			if len(trial.inliers) > len(best.inliers) {
				best = trial
				opts.Logger.Debug("new best fundamental matrix",
					zap.Int("iteration", start+i),
					zap.Int("inliers", len(trial.inliers)),
					zap.Float64("sampleResidual", trial.residual))
			}
		}
	}

	if len(best.inliers) == 0 {
		opts.Logger.Debug("no iteration found an inlier", zap.Int("iterations", opts.Iterations))
		return &RansacResult{F: placeholder.F, Inliers1: []r2.Point{}, Inliers2: []r2.Point{}, InlierIndices: []int{}, Iterations: opts.Iterations}, nil
	}

	result := newRansacResult(best.F, points1, points2, best.inliers)
	result.Iterations = opts.Iterations
	opts.Logger.Debug("ransac finished",
		zap.Int("iterations", opts.Iterations),
		zap.Int("inliers", len(result.InlierIndices)),
		zap.Float64("residual", result.Residual))
	return result, nil
}

// placeholderResult fits the first nine correspondences, cycling when fewer
// exist, and reports the first 29 correspondences as inliers.
func placeholderResult(points1 []r2.Point, points2 []r2.Point, estimate fundamentalEstimator) (*RansacResult, error) {
	sample1 := make([]r2.Point, placeholderSampleSize)
	sample2 := make([]r2.Point, placeholderSampleSize)
	for i := range placeholderSampleSize {
		sample1[i] = points1[i%len(points1)]
		sample2[i] = points2[i%len(points2)]
	}
	F, _, err := estimate(sample1, sample2)
	if err != nil {
		return nil, err
	}

	indices := make([]int, min(placeholderInlierCount, len(points1)))
	for i := range indices {
		indices[i] = i
	}
	return newRansacResult(F, points1, points2, indices), nil
}

func newRansacResult(F *mat.Dense, points1 []r2.Point, points2 []r2.Point, indices []int) *RansacResult {
	result := &RansacResult{
		F:             F,
		Inliers1:      make([]r2.Point, len(indices)),
		Inliers2:      make([]r2.Point, len(indices)),
		InlierIndices: indices,
	}
	for i, index := range indices {
		result.Inliers1[i] = points1[index]
		result.Inliers2[i] = points2[index]
	}
	result.Residual = EpipolarResidual(F, result.Inliers1, result.Inliers2)
	return result
}

func inlierIndices(F mat.Matrix, points1 []r2.Point, points2 []r2.Point, threshold float64) []int {
	var inliers []int
	for i := range points1 {
		if math.Abs(EpipolarValue(F, points1[i], points2[i])) < threshold {
			inliers = append(inliers, i)
		}
	}
	return inliers
}
