package services

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"contractlens/internal/models"
)

// Ingestion outcomes reported by ProcessFile
const (
	IngestNew     = "new"
	IngestUpdated = "updated"
	IngestSkipped = "skipped"
)

var ingestExtensions = map[string]bool{
	".txt":   true,
	".text":  true,
	".md":    true,
	".html":  true,
	".htm":   true,
	".xhtml": true,
	".docx":  true,
}

type IngestionStats struct {
	New      int
	Updated  int
	Skipped  int
	Errors   int
	Total    int
	Analyzed int
}

// DocumentStore persists contract documents. Implemented by
// repositories.DocumentRepository.
type DocumentStore interface {
	UpsertDocument(ctx context.Context, doc *models.ContractDocument) (inserted bool, err error)
	SaveAnalysis(ctx context.Context, doc *models.ContractDocument) error
}

type IngestionService struct {
	store     DocumentStore
	documents *DocumentService
	analyze   bool
	logger    *slog.Logger
}

// NewIngestionService creates a service that loads files into store. When
// analyze is set each new document is analyzed right after it is stored.
func NewIngestionService(store DocumentStore, documents *DocumentService, analyze bool, logger *slog.Logger) *IngestionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestionService{
		store:     store,
		documents: documents,
		analyze:   analyze,
		logger:    logger.With("component", "ingestion"),
	}
}

// CollectFiles expands paths into the supported document files they name,
// walking directories recursively. Explicitly named files are always kept.
func CollectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if ingestExtensions[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// IngestFiles stores every file, continuing past per-file failures, which
// are counted in the returned stats.
func (s *IngestionService) IngestFiles(ctx context.Context, files []string) (*IngestionStats, error) {
	stats := &IngestionStats{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Total++
		result, err := s.ProcessFile(ctx, path)
		if err != nil {
			stats.Errors++
			s.logger.ErrorContext(ctx, "failed to ingest file", "path", path, "error", err)
			continue
		}
		switch result {
		case IngestNew:
			stats.New++
			if s.analyze {
				stats.Analyzed++
			}
		case IngestUpdated:
			stats.Updated++
		case IngestSkipped:
			stats.Skipped++
		}
	}
	return stats, nil
}

// ProcessFile reads, extracts and stores a single file. Returns "new",
// "updated" (same content already stored) or "skipped" (no text).
func (s *IngestionService) ProcessFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	doc, err := s.documents.NewDocument(filepath.Base(path), data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(doc.RawText) == "" {
		return IngestSkipped, nil
	}

	inserted, err := s.store.UpsertDocument(ctx, doc)
	if err != nil {
		return "", err
	}
	if !inserted {
		return IngestUpdated, nil
	}

	if s.analyze {
		// A failed analysis is still recorded on the document
		analyzeErr := s.documents.AnalyzeDocument(ctx, doc)
		if err := s.store.SaveAnalysis(ctx, doc); err != nil {
			return "", err
		}
		if analyzeErr != nil {
			return "", analyzeErr
		}
	}
	return IngestNew, nil
}
