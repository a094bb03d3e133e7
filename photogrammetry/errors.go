package photogrammetry

import "github.com/pkg/errors"

var (
	// ErrTooFewPoints is returned when a correspondence set is smaller than the solver minimum.
	ErrTooFewPoints = errors.New("photogrammetry: too few correspondences")

	// ErrLengthMismatch is returned when the two sides of a correspondence set differ in length.
	ErrLengthMismatch = errors.New("photogrammetry: correspondence lengths differ")

	ErrBadShape = errors.New("photogrammetry: invalid matrix shape")

	// ErrFactorization is returned when gonum fails to compute an SVD.
	ErrFactorization = errors.New("photogrammetry: failed to factorize matrix")

	ErrInvalidOption = errors.New("photogrammetry: invalid option")
)

func checkCorrespondences(n1, n2, minimum int) error {
	if n1 != n2 {
		return errors.Wrapf(ErrLengthMismatch, "%d != %d", n1, n2)
	}
	if n1 < minimum {
		return errors.Wrapf(ErrTooFewPoints, "got %d, need at least %d", n1, minimum)
	}
	return nil
}
