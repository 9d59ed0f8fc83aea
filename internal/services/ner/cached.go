package ner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"contractlens/internal/models"
	"contractlens/internal/services"
)

// Cache stores recognition results by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]models.EntitySpan, bool, error)
	Set(ctx context.Context, key string, spans []models.EntitySpan) error
}

// Cached memoizes another recognizer. Cache failures are logged and the
// wrapped recognizer is used directly; they never fail a lookup.
type Cached struct {
	next   services.EntityRecognizer
	cache  Cache
	logger *slog.Logger
}

// NewCached wraps next with cache
func NewCached(next services.EntityRecognizer, cache Cache, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, cache: cache, logger: logger}
}

func (c *Cached) Organizations(ctx context.Context, text string) ([]models.EntitySpan, error) {
	return c.lookup(ctx, models.EntityOrganization, text, c.next.Organizations)
}

func (c *Cached) Persons(ctx context.Context, text string) ([]models.EntitySpan, error) {
	return c.lookup(ctx, models.EntityPerson, text, c.next.Persons)
}

// Sentences delegates to the wrapped recognizer when it can split sentences.
func (c *Cached) Sentences(text string) ([]string, error) {
	if s, ok := c.next.(services.SentenceSplitter); ok {
		return s.Sentences(text)
	}
	return services.PunctuationSplitter{}.Sentences(text)
}

func (c *Cached) lookup(
	ctx context.Context,
	label, text string,
	recognize func(context.Context, string) ([]models.EntitySpan, error),
) ([]models.EntitySpan, error) {
	key := CacheKey(label, text)
	spans, found, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "entity cache read failed", "error", err)
	} else if found {
		return spans, nil
	}

	spans, err = recognize(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, spans); err != nil {
		c.logger.WarnContext(ctx, "entity cache write failed", "error", err)
	}
	return spans, nil
}

// CacheKey builds the cache key for a label and text
func CacheKey(label, text string) string {
	hash := sha256.Sum256([]byte(text))
	return "ner:" + label + ":" + hex.EncodeToString(hash[:])
}
