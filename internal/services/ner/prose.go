// Package ner provides entity recognizers for party identification.
package ner

import (
	"context"
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"

	"contractlens/internal/models"
)

// Prose recognizes entities with the in-process prose model. It also
// splits sentences, so it can serve as the sentence splitter too.
//
// The model is loaded once and only read while tagging, so a Prose is safe
// for concurrent use.
type Prose struct {
	model *prose.Model
}

// NewProse creates a new Prose recognizer. Loading the embedded tagger and
// extractor models takes a noticeable fraction of a second.
func NewProse() *Prose {
	return &Prose{model: prose.ModelFromData("en")}
}

// Organizations returns ORG spans. prose labels most organizations GPE, so
// both labels count.
func (p *Prose) Organizations(ctx context.Context, text string) ([]models.EntitySpan, error) {
	return p.entities(ctx, text, models.EntityOrganization, func(label string) bool {
		return label == "ORG" || label == "GPE"
	})
}

// Persons returns PERSON spans.
func (p *Prose) Persons(ctx context.Context, text string) ([]models.EntitySpan, error) {
	return p.entities(ctx, text, models.EntityPerson, func(label string) bool {
		return label == "PERSON"
	})
}

func (p *Prose) entities(ctx context.Context, text, label string, keep func(string) bool) ([]models.EntitySpan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(text, prose.UsingModel(p.model), prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("failed to tag text: %w", err)
	}

	var names []string
	for _, ent := range doc.Entities() {
		if keep(ent.Label) {
			names = append(names, strings.TrimSpace(ent.Text))
		}
	}
	return locate(text, names, label), nil
}

// Sentences splits text into sentences with the prose segmenter.
func (p *Prose) Sentences(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	doc, err := prose.NewDocument(text,
		prose.UsingModel(p.model),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to segment text: %w", err)
	}
	sentences := make([]string, 0, len(doc.Sentences()))
	for _, s := range doc.Sentences() {
		sentences = append(sentences, s.Text)
	}
	return sentences, nil
}

// locate turns entity texts into spans by finding each one in text after
// the previous span. Entities prose reassembled with different spacing are
// looked up from the start, then left without offsets (-1).
func locate(text string, names []string, label string) []models.EntitySpan {
	spans := make([]models.EntitySpan, 0, len(names))
	cursor := 0
	for _, name := range names {
		if name == "" {
			continue
		}
		span := models.EntitySpan{Text: name, Label: label, Start: -1, End: -1}
		if i := strings.Index(text[cursor:], name); i >= 0 {
			span.Start = cursor + i
		} else if i := strings.Index(text, name); i >= 0 {
			span.Start = i
		}
		if span.Start >= 0 {
			span.End = span.Start + len(name)
			cursor = span.End
		}
		spans = append(spans, span)
	}
	return spans
}
