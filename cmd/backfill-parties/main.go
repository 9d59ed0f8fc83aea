package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"contractlens/internal/config"
	"contractlens/internal/models"
	"contractlens/internal/repositories"
	"contractlens/internal/services"
	"contractlens/internal/services/ner"
)

const (
	// Advisory lock key for backfill job
	backfillLockKey = 2
	// Upper bound on worker goroutines
	maxWorkers = 10
	// Initial backoff duration
	initialBackoff = 1 * time.Second
)

type backfillStats struct {
	Total       int
	Processed   int
	Complete    int
	NeedsReview int
	Errors      int
	mu          sync.Mutex
}

func (s *backfillStats) IncrementProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Processed++
}

func (s *backfillStats) processedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Processed
}

func (s *backfillStats) Record(status models.AnalysisStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch status {
	case models.AnalysisStatusComplete:
		s.Complete++
	case models.AnalysisStatusNeedsReview:
		s.NeedsReview++
	}
}

func (s *backfillStats) IncrementErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors++
}

type worker struct {
	repo       *repositories.DocumentRepository
	documents  *services.DocumentService
	limiter    *rate.Limiter
	stats      *backfillStats
	logger     *slog.Logger
	maxRetries int
	dryRun     bool
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (default $CONTRACTLENS_CONFIG)")
	limit := flag.Int("limit", 0, "Maximum number of documents to process (0 = no limit)")
	statusFlag := flag.String("status", "pending", "Comma-separated statuses to (re)analyze, e.g. 'pending,error'")
	dryRun := flag.Bool("dry-run", false, "Dry run mode: log what would be updated without making changes")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default from config)")
	perSecond := flag.Float64("rate", 0, "Documents analyzed per second across all workers (0 = unlimited)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	logger := cfg.Logger(os.Stderr)

	statuses, err := parseStatuses(*statusFlag)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	// Try to acquire advisory lock
	var lockAcquired bool
	err = pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", backfillLockKey).Scan(&lockAcquired)
	if err != nil {
		log.Fatal("Failed to check advisory lock:", err)
	}

	if !lockAcquired {
		log.Println("Another backfill job is already running. Exiting gracefully.")
		return
	}

	// Ensure lock is released on exit
	defer func() {
		_, unlockErr := pool.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", backfillLockKey)
		if unlockErr != nil {
			log.Printf("Warning: Failed to release advisory lock: %v", unlockErr)
		}
	}()

	log.Println("✅ Acquired advisory lock, starting backfill...")
	if *dryRun {
		log.Println("🔍 DRY RUN MODE: No changes will be made")
	}

	repo := repositories.NewDocumentRepository(pool)

	fetch := func(ctx context.Context, cursor string, n int) (*repositories.ListResult, error) {
		return repo.ListForAnalysis(ctx, statuses, cursor, n)
	}
	q := &queue{fetch: fetch, batchSize: cfg.Backfill.BatchSize, limit: *limit}

	first, err := q.next(ctx)
	if err != nil {
		log.Fatalf("Failed to query documents: %v", err)
	}
	if len(first) == 0 {
		log.Println("No documents found matching criteria")
		return
	}
	log.Printf("📊 Processing documents in batches of %d", cfg.Backfill.BatchSize)

	recognizer, closeRecognizer, err := cfg.NewRecognizer(ctx, logger)
	if err != nil {
		log.Fatalf("Failed to create entity recognizer: %v", err)
	}
	defer closeRecognizer()

	identifier := services.NewPartyIdentifier(recognizer, services.WithLogger(logger))
	docOpts := []services.DocumentOption{
		services.WithCleanup(cfg.Cleanup),
		services.WithDocumentLogger(logger),
	}
	if cfg.ScanPersonalData {
		docOpts = append(docOpts, services.WithPersonalDataScan(recognizer))
	}

	numWorkers := cfg.Backfill.Workers
	if *workers > 0 {
		numWorkers = *workers
	}
	if numWorkers > maxWorkers {
		log.Printf("⚠️  Limiting workers to %d (requested: %d)", maxWorkers, numWorkers)
		numWorkers = maxWorkers
	}

	limitPerSecond := rate.Inf
	if *perSecond > 0 {
		limitPerSecond = rate.Limit(*perSecond)
	}

	stats := &backfillStats{}
	w := &worker{
		repo:       repo,
		documents:  services.NewDocumentService(identifier, docOpts...),
		limiter:    rate.NewLimiter(limitPerSecond, 1),
		stats:      stats,
		logger:     logger,
		maxRetries: cfg.Backfill.MaxRetries,
		dryRun:     *dryRun,
	}

	workChan := make(chan *models.ContractDocument, numWorkers*2)
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for doc := range workChan {
				w.process(ctx, doc, workerID)
			}
		}(i)
	}

	var queued int
	var queueErr error
	go func() {
		defer close(workChan)
		queued, queueErr = q.feed(ctx, first, workChan)
	}()

	wg.Wait()
	stats.Total = queued
	if queueErr != nil {
		log.Printf("⚠️  Failed to fetch next batch: %v", queueErr)
		stats.IncrementErrors()
	}

	// Log results
	log.Println("✅ Backfill completed")
	log.Printf("📊 Statistics:")
	log.Printf("   Total: %d", stats.Total)
	log.Printf("   Processed: %d", stats.Processed)
	log.Printf("   Complete: %d", stats.Complete)
	log.Printf("   Needs review: %d", stats.NeedsReview)
	log.Printf("   Errors: %d", stats.Errors)

	if stats.Errors > 0 {
		log.Printf("⚠️  Warning: %d errors occurred during backfill", stats.Errors)
		pool.Close()
		os.Exit(1)
	}
}

// queue pages documents awaiting analysis, batchSize at a time, stopping
// after limit documents when limit is positive.
type queue struct {
	fetch     func(ctx context.Context, cursor string, n int) (*repositories.ListResult, error)
	batchSize int
	limit     int

	cursor  string
	fetched int
	done    bool
}

// next returns the next batch, or nil once the queue is drained.
func (q *queue) next(ctx context.Context) ([]*models.ContractDocument, error) {
	if q.done {
		return nil, nil
	}
	n := q.batchSize
	if q.limit > 0 && q.limit-q.fetched < n {
		n = q.limit - q.fetched
	}
	if n <= 0 {
		q.done = true
		return nil, nil
	}

	page, err := q.fetch(ctx, q.cursor, n)
	if err != nil {
		return nil, err
	}
	q.fetched += len(page.Items)
	q.cursor = page.NextCursor
	if !page.HasMore || len(page.Items) == 0 {
		q.done = true
	}
	return page.Items, nil
}

// feed sends first and every later batch to out until the queue is drained
// or ctx is done. It returns how many documents were sent.
func (q *queue) feed(ctx context.Context, first []*models.ContractDocument, out chan<- *models.ContractDocument) (int, error) {
	sent := 0
	batch := first
	for len(batch) > 0 {
		for _, doc := range batch {
			select {
			case out <- doc:
				sent++
			case <-ctx.Done():
				return sent, nil
			}
		}
		var err error
		if batch, err = q.next(ctx); err != nil {
			if ctx.Err() != nil {
				return sent, nil
			}
			return sent, err
		}
	}
	return sent, nil
}

func parseStatuses(s string) ([]models.AnalysisStatus, error) {
	var statuses []models.AnalysisStatus
	for _, part := range strings.Split(s, ",") {
		status := models.AnalysisStatus(strings.TrimSpace(part))
		switch status {
		case models.AnalysisStatusPending, models.AnalysisStatusComplete,
			models.AnalysisStatusNeedsReview, models.AnalysisStatusError:
			statuses = append(statuses, status)
		case "":
		default:
			return nil, fmt.Errorf("unknown status %q", status)
		}
	}
	if len(statuses) == 0 {
		return nil, errors.New("at least one status is required")
	}
	return statuses, nil
}

func (w *worker) process(ctx context.Context, doc *models.ContractDocument, workerID int) {
	w.stats.IncrementProcessed()

	if err := w.limiter.Wait(ctx); err != nil {
		w.stats.IncrementErrors()
		return
	}

	// Retry transient recognizer failures with exponential backoff
	var err error
	backoff := initialBackoff
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			w.logger.WarnContext(ctx, "retrying document after transient failure",
				"worker", workerID, "document", doc.ID, "attempt", attempt, "backoff", backoff, "error", err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				w.stats.IncrementErrors()
				return
			}
			backoff *= 2
		}

		err = w.documents.AnalyzeDocument(ctx, doc)
		if err == nil || !errors.Is(err, ner.ErrTransient) {
			break
		}
	}

	if err != nil {
		log.Printf("[Worker %d] Failed to analyze document %s: %v", workerID, doc.ID, err)
		w.stats.IncrementErrors()
	} else {
		w.stats.Record(doc.Status)
	}

	if w.dryRun {
		log.Printf("[DRY RUN] Would update document %s (%s): status=%s", doc.ID, doc.Name, doc.Status)
		return
	}

	// Failed analyses are stored too so they can be retried with -status error
	if saveErr := w.repo.SaveAnalysis(ctx, doc); saveErr != nil {
		log.Printf("[Worker %d] Failed to save document %s: %v", workerID, doc.ID, saveErr)
		if err == nil {
			w.stats.IncrementErrors()
		}
		return
	}

	if processed := w.stats.processedCount(); processed%100 == 0 {
		log.Printf("✅ Processed %d documents...", processed)
	}
}
