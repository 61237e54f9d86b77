package analysis

import "errors"

// Sentinel errors for result assembly and record decoding.
var (
	ErrUnknownVariant       = errors.New("analysis: unknown variant")
	ErrInvalidProbabilities = errors.New("analysis: invalid probability vector")
	ErrCorruptRecord        = errors.New("analysis: corrupt record")
	ErrSchemaMismatch       = errors.New("analysis: record schema mismatch")
)
