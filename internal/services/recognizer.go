package services

import (
	"context"

	"contractlens/internal/models"
)

// EntityRecognizer is the named-entity capability the party identifier is
// built on. Spans are returned in scan order; heuristics use the first one
// unless stated otherwise. Implementations must not mutate shared state
// visible to callers.
type EntityRecognizer interface {
	Organizations(ctx context.Context, text string) ([]models.EntitySpan, error)
	Persons(ctx context.Context, text string) ([]models.EntitySpan, error)
}

// SentenceSplitter splits a line into sentences. Only the sentence-based
// heuristic needs one.
type SentenceSplitter interface {
	Sentences(text string) ([]string, error)
}
