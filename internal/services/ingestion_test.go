package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractlens/internal/models"
)

// fakeStore keeps documents in memory keyed by content hash
type fakeStore struct {
	byHash    map[string]*models.ContractDocument
	saved     []*models.ContractDocument
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byHash: map[string]*models.ContractDocument{}}
}

func (f *fakeStore) UpsertDocument(_ context.Context, doc *models.ContractDocument) (bool, error) {
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	if existing, ok := f.byHash[doc.ContentHash]; ok {
		doc.ID = existing.ID
		existing.Name = doc.Name
		return false, nil
	}
	f.byHash[doc.ContentHash] = doc
	return true, nil
}

func (f *fakeStore) SaveAnalysis(_ context.Context, doc *models.ContractDocument) error {
	f.saved = append(f.saved, doc)
	return nil
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
	return dir
}

func newTestIngestion(store DocumentStore, rec *fakeRecognizer, analyze bool) *IngestionService {
	return NewIngestionService(store, newTestDocumentService(rec), analyze, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCollectFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"b.txt":             "b",
		"a.docx":            "a",
		"nested/c.html":     "c",
		"nested/image.png":  "png",
		".hidden/secret.md": "x",
	})
	explicit := filepath.Join(dir, "nested", "image.png")

	files, err := CollectFiles([]string{dir, explicit})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.docx"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "nested", "c.html"),
		explicit,
	}, files)

	_, err = CollectFiles([]string{filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)
}

func TestIngestFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"nda.txt":   sampleAgreement,
		"copy.txt":  sampleAgreement,
		"blank.txt": "  \n\n ",
		"memo.htm":  "<p>Lunch is at noon</p>",
	})
	files, err := CollectFiles([]string{dir})
	require.NoError(t, err)

	store := newFakeStore()
	rec := &fakeRecognizer{orgs: []string{"ABC Pty Ltd", "XYZ Inc"}}
	stats, err := newTestIngestion(store, rec, true).IngestFiles(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.New)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, 2, stats.Analyzed)

	require.Len(t, store.saved, 2)
	statuses := []models.AnalysisStatus{store.saved[0].Status, store.saved[1].Status}
	assert.ElementsMatch(t, []models.AnalysisStatus{models.AnalysisStatusComplete, models.AnalysisStatusNeedsReview}, statuses)
}

func TestIngestFiles_WithoutAnalysis(t *testing.T) {
	dir := writeFiles(t, map[string]string{"nda.txt": sampleAgreement})
	store := newFakeStore()
	rec := &fakeRecognizer{}

	stats, err := newTestIngestion(store, rec, false).IngestFiles(context.Background(), []string{filepath.Join(dir, "nda.txt")})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.New)
	assert.Empty(t, store.saved)
	assert.Zero(t, rec.calls())

	for _, doc := range store.byHash {
		assert.Equal(t, models.AnalysisStatusPending, doc.Status)
	}
}

func TestIngestFiles_Errors(t *testing.T) {
	dir := writeFiles(t, map[string]string{"nda.txt": sampleAgreement})
	files := []string{filepath.Join(dir, "nda.txt"), filepath.Join(dir, "gone.txt")}

	store := newFakeStore()
	store.upsertErr = errors.New("database unavailable")
	stats, err := newTestIngestion(store, &fakeRecognizer{}, false).IngestFiles(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Errors)
}

func TestIngestFiles_AnalysisFailureIsSaved(t *testing.T) {
	dir := writeFiles(t, map[string]string{"nda.txt": sampleAgreement})
	store := newFakeStore()
	rec := &fakeRecognizer{err: errors.New("model unavailable")}

	stats, err := newTestIngestion(store, rec, true).IngestFiles(context.Background(), []string{filepath.Join(dir, "nda.txt")})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	require.Len(t, store.saved, 1)
	assert.Equal(t, models.AnalysisStatusError, store.saved[0].Status)
	require.NotNil(t, store.saved[0].LastError)
}

func TestIngestFiles_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestIngestion(newFakeStore(), &fakeRecognizer{}, false).IngestFiles(ctx, []string{"nda.txt"})
	assert.ErrorIs(t, err, context.Canceled)
}
