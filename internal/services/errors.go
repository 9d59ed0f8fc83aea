package services

import (
	"errors"
	"fmt"
)

// ErrExtraction is matched by every *ExtractionError via errors.Is.
var ErrExtraction = errors.New("party extraction failed")

// ExtractionError reports a failure of an injected collaborator (entity
// recognizer or sentence splitter) while a heuristic was running. Data
// problems in the document never produce one.
type ExtractionError struct {
	Case int    // heuristic number, 1-8
	Op   string // "organizations", "persons" or "sentences"
	Line int    // index into the line list, -1 when not tied to a line
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Line >= 0 {
		return fmt.Sprintf("case %d: %s on line %d: %v", e.Case, e.Op, e.Line, e.Err)
	}
	return fmt.Sprintf("case %d: %s: %v", e.Case, e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }
