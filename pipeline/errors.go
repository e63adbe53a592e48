package pipeline

import "errors"

var (
	// ErrPerResidueUnsupported is returned when per-residue output is requested
	// from an engine that only produces pooled vectors.
	ErrPerResidueUnsupported = errors.New("engine only produces pooled vectors; per-residue output unsupported")

	// ErrInvalidConfig is returned when a run configuration fails validation.
	ErrInvalidConfig = errors.New("invalid pipeline config")

	// ErrShortOutput is returned when the engine yields fewer rows than a sequence has residues.
	ErrShortOutput = errors.New("engine output shorter than sequence")

	// ErrRaggedOutput is returned when rows of one matrix differ in width.
	ErrRaggedOutput = errors.New("engine output rows differ in width")
)
