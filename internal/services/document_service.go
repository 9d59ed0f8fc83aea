package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"contractlens/internal/models"
)

// DocumentService runs the full analysis of a contract document: text
// extraction, optional cleanup, line extraction, party identification and
// personal-data scanning.
type DocumentService struct {
	identifier  *PartyIdentifier
	cleanup     bool
	scan        bool
	scanPersons EntityRecognizer
	logger      *slog.Logger
	now         func() time.Time
}

// DocumentOption configures a DocumentService
type DocumentOption func(*DocumentService)

// WithCleanup enables CleanupDocument before line extraction.
func WithCleanup(enabled bool) DocumentOption {
	return func(s *DocumentService) { s.cleanup = enabled }
}

// WithPersonalDataScan enables personal-data scanning. Person names are
// only reported when recognizer is not nil.
func WithPersonalDataScan(recognizer EntityRecognizer) DocumentOption {
	return func(s *DocumentService) {
		s.scan = true
		s.scanPersons = recognizer
	}
}

// WithDocumentLogger sets the logger. Defaults to slog.Default().
func WithDocumentLogger(l *slog.Logger) DocumentOption {
	return func(s *DocumentService) { s.logger = l }
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(identifier *PartyIdentifier, opts ...DocumentOption) *DocumentService {
	s := &DocumentService{identifier: identifier, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// NewDocument extracts the text of an uploaded file into a pending record.
func (s *DocumentService) NewDocument(name string, data []byte) (*models.ContractDocument, error) {
	text, sourceType, err := ExtractText(name, data)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return &models.ContractDocument{
		ID:          uuid.New(),
		Name:        name,
		SourceType:  sourceType,
		RawText:     text,
		ContentHash: ComputeContentHash(text),
		LineCount:   len(ExtractLines(text)),
		Status:      models.AnalysisStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Analyze extracts and analyzes an uploaded file in one step.
func (s *DocumentService) Analyze(ctx context.Context, name string, data []byte) (*models.ContractDocument, error) {
	doc, err := s.NewDocument(name, data)
	if err != nil {
		return nil, err
	}
	if err := s.AnalyzeDocument(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// AnalyzeDocument identifies the parties of doc and records the outcome on
// it. A collaborator failure marks the document as errored and is returned;
// an incomplete identification is recorded as needing review.
func (s *DocumentService) AnalyzeDocument(ctx context.Context, doc *models.ContractDocument) error {
	text := doc.RawText
	if s.cleanup {
		text = CleanupDocument(text)
	}
	lines := ExtractLines(text)
	doc.LineCount = len(lines)

	now := s.now().UTC()
	doc.UpdatedAt = now

	result, err := s.identifier.Identify(ctx, lines)
	if err != nil {
		msg := err.Error()
		doc.Status = models.AnalysisStatusError
		doc.LastError = &msg
		s.logger.ErrorContext(ctx, "party identification failed", "document", doc.ID, "name", doc.Name, "error", err)
		return fmt.Errorf("failed to identify parties of %s: %w", doc.Name, err)
	}

	parties := result.Parties
	matched := result.Case
	doc.Parties = &parties
	doc.MatchedCase = &matched
	doc.Status = models.StatusFor(parties)
	doc.LastError = nil
	doc.AnalyzedAt = &now

	if s.scan {
		findings, err := ScanPersonalData(ctx, doc.RawText, s.scanPersons)
		if err != nil {
			msg := err.Error()
			doc.Status = models.AnalysisStatusError
			doc.LastError = &msg
			return fmt.Errorf("failed to scan %s for personal data: %w", doc.Name, err)
		}
		doc.PersonalData = findings
	}

	s.logger.InfoContext(ctx, "document analyzed",
		"document", doc.ID,
		"name", doc.Name,
		"status", doc.Status,
		"case", matched,
		"findings", len(doc.PersonalData),
	)
	return nil
}
