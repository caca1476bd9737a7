package vector

import "errors"

// Sentinel errors for index operations. Callers match with errors.Is.
var (
	// ErrInvalidInput is returned when build arguments are empty or of mismatched length.
	ErrInvalidInput = errors.New("vector: empty or mismatched input")
	// ErrDimensionMismatch is returned when a vector does not match the index dimensionality.
	ErrDimensionMismatch = errors.New("vector: dimension mismatch")
	// ErrNotBuilt is returned by incremental adds before a structure exists.
	ErrNotBuilt = errors.New("vector: index not built")
	// ErrTrainingFailed is returned when partition training does not converge.
	// Callers may retry with a flat topology by raising FlatThreshold.
	ErrTrainingFailed = errors.New("vector: partition training failed to converge")
	// ErrCorruptIndex is returned when a persisted index cannot be decoded.
	ErrCorruptIndex = errors.New("vector: persisted index corrupted")
)
