// Package iderr defines the error kinds the insertion-device optimizer can
// raise and the process exit codes they map to (see spec §7).
package iderr

import "errors"

// Sentinel error kinds. Wrap these with fmt.Errorf("...: %w", kind) so
// callers can classify failures with errors.Is while still carrying
// context-specific detail.
var (
	// ErrInputDecode marks malformed ID/lookup/catalogue input.
	ErrInputDecode = errors.New("input decode failure")
	// ErrInvariantViolation marks a broken structural invariant (layout
	// length mismatch, empty type pool, zero-genome restart, ...).
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrUnsupportedDeviceType marks an unrecognised device family.
	ErrUnsupportedDeviceType = errors.New("unsupported device type")
	// ErrIOFailure marks a read/write/checkpoint failure.
	ErrIOFailure = errors.New("io failure")
	// ErrArithmeticDegenerate marks a singular least-squares fit or other
	// numerically degenerate computation.
	ErrArithmeticDegenerate = errors.New("arithmetic degenerate")
)

// ExitCode maps an error produced anywhere in this module to the process
// exit code the CLI entry points should return.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInputDecode):
		return 1
	case errors.Is(err, ErrInvariantViolation):
		return 2
	case errors.Is(err, ErrUnsupportedDeviceType):
		return 3
	case errors.Is(err, ErrIOFailure):
		return 4
	case errors.Is(err, ErrArithmeticDegenerate):
		return 5
	default:
		return 1
	}
}
