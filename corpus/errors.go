package corpus

import (
	"errors"
	"fmt"
)

var (
	// ErrBodyBeforeHeader is returned when sequence data appears before the first header.
	ErrBodyBeforeHeader = errors.New("sequence data before first header")

	// ErrDuplicateID is returned for a repeated id when duplicates are rejected.
	ErrDuplicateID = errors.New("duplicate sequence id")

	// ErrEmptyCorpus is returned when the input holds no records.
	ErrEmptyCorpus = errors.New("corpus contains no sequences")

	// ErrInvalidPartSize is returned when a split part size is not positive.
	ErrInvalidPartSize = errors.New("part size must be greater than 0")

	// ErrInvalidBinSize is returned when a histogram bin size is not positive.
	ErrInvalidBinSize = errors.New("bin size must be greater than 0")
)

// ParseError reports a malformed record and the input line it was found on.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
