package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractlens/internal/models"
)

func newTestDocumentService(rec *fakeRecognizer, opts ...DocumentOption) *DocumentService {
	opts = append([]DocumentOption{WithDocumentLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	s := NewDocumentService(newTestIdentifier(rec), opts...)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	return s
}

const sampleAgreement = "MUTUAL CONFIDENTIALITY AGREEMENT\r\n" +
	"ABC Pty Ltd ABN 12 345 678 901 (the Disclosing Party)\r\n" +
	"and\r\n" +
	"XYZ Inc (Recipient)\r\n" +
	"Contact: legal@abc.com.au\r\n"

func TestAnalyze_Complete(t *testing.T) {
	rec := &fakeRecognizer{orgs: []string{"ABC Pty Ltd", "XYZ Inc"}}
	s := newTestDocumentService(rec, WithPersonalDataScan(nil))

	doc, err := s.Analyze(context.Background(), "nda.txt", []byte(sampleAgreement))
	require.NoError(t, err)

	assert.Equal(t, "nda.txt", doc.Name)
	assert.Equal(t, models.SourceTypeText, doc.SourceType)
	assert.Equal(t, models.AnalysisStatusComplete, doc.Status)
	assert.Equal(t, ComputeContentHash(doc.RawText), doc.ContentHash)
	assert.Equal(t, 5, doc.LineCount)
	require.NotNil(t, doc.MatchedCase)
	assert.Equal(t, 1, *doc.MatchedCase)
	require.NotNil(t, doc.Parties)
	assert.Equal(t, "ABC Pty Ltd", doc.Parties.Party1.FullName)
	assert.Equal(t, "XYZ Inc", doc.Parties.Party2.FullName)
	assert.Nil(t, doc.LastError)
	require.NotNil(t, doc.AnalyzedAt)
	assert.Equal(t, 2024, doc.AnalyzedAt.Year())

	assert.Equal(t, []string{"legal@abc.com.au"}, FindingTexts(doc.PersonalData, models.PersonalDataEmail))
	assert.Equal(t, []string{"12 345 678 901"}, FindingTexts(doc.PersonalData, models.PersonalDataABN))
}

func TestAnalyze_IncompleteNeedsReview(t *testing.T) {
	s := newTestDocumentService(&fakeRecognizer{})

	doc, err := s.Analyze(context.Background(), "memo.txt", []byte("Lunch is at noon"))
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusNeedsReview, doc.Status)
	require.NotNil(t, doc.MatchedCase)
	assert.Equal(t, 7, *doc.MatchedCase)
	assert.Empty(t, doc.PersonalData)
}

func TestAnalyze_RecognizerFailureMarksError(t *testing.T) {
	boom := errors.New("model offline")
	s := newTestDocumentService(&fakeRecognizer{err: boom})

	doc, err := s.Analyze(context.Background(), "nda.txt", []byte(sampleAgreement))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, boom)

	require.NotNil(t, doc)
	assert.Equal(t, models.AnalysisStatusError, doc.Status)
	require.NotNil(t, doc.LastError)
	assert.Contains(t, *doc.LastError, "model offline")
	assert.Nil(t, doc.Parties)
}

func TestAnalyzeDocument_Cleanup(t *testing.T) {
	rec := &fakeRecognizer{orgs: []string{"Acme Corp", "Beta LLC"}}
	doc := &models.ContractDocument{
		Name:    "nda.html",
		RawText: "<p>Acme Corp (the Discloser)</p><p>Beta LLC (the Recipient)</p>",
	}

	err := newTestDocumentService(rec).AnalyzeDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusNeedsReview, doc.Status)

	err = newTestDocumentService(rec, WithCleanup(true)).AnalyzeDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusComplete, doc.Status)
	assert.Equal(t, "Acme Corp", doc.Parties.Party1.FullName)
}

func TestNewDocument(t *testing.T) {
	s := newTestDocumentService(&fakeRecognizer{})
	doc, err := s.NewDocument("a.txt", []byte("one\n\ntwo"))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, models.AnalysisStatusPending, doc.Status)
	assert.Equal(t, 2, doc.LineCount)
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)
}
