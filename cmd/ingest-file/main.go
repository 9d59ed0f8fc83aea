package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"contractlens/internal/config"
	"contractlens/internal/repositories"
	"contractlens/internal/services"
)

// Advisory lock key for ingestion jobs
const ingestLockKey = 1

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (default $CONTRACTLENS_CONFIG)")
	analyze := flag.Bool("analyze", false, "Identify parties of new documents while ingesting")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("Usage: go run ./cmd/ingest-file [-analyze] <file-or-directory>...")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	logger := cfg.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	// Try to acquire advisory lock
	var lockAcquired bool
	err = pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", ingestLockKey).Scan(&lockAcquired)
	if err != nil {
		log.Fatal("Failed to check advisory lock:", err)
	}

	if !lockAcquired {
		log.Println("Another ingestion job is already running. Exiting gracefully.")
		return
	}

	defer func() {
		_, unlockErr := pool.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", ingestLockKey)
		if unlockErr != nil {
			log.Printf("Warning: Failed to release advisory lock: %v", unlockErr)
		}
	}()

	log.Println("✅ Acquired advisory lock, starting file ingestion...")

	files, err := services.CollectFiles(flag.Args())
	if err != nil {
		log.Fatalf("Failed to collect files: %v", err)
	}
	log.Printf("📄 Found %d document(s)", len(files))

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
	documents := services.NewDocumentService(identifier, docOpts...)

	repo := repositories.NewDocumentRepository(pool)
	ingestion := services.NewIngestionService(repo, documents, *analyze, logger)

	stats, err := ingestion.IngestFiles(ctx, files)
	if err != nil {
		log.Printf("⚠️  Ingestion interrupted: %v", err)
	}

	// Log results
	log.Println("✅ File ingestion completed")
	log.Printf("📊 Statistics:")
	log.Printf("   Total processed: %d", stats.Total)
	log.Printf("   New: %d", stats.New)
	log.Printf("   Updated: %d", stats.Updated)
	log.Printf("   Skipped: %d", stats.Skipped)
	log.Printf("   Analyzed: %d", stats.Analyzed)
	log.Printf("   Errors: %d", stats.Errors)

	if stats.Errors > 0 || err != nil {
		log.Printf("⚠️  Warning: %d errors occurred during ingestion", stats.Errors)
		stop()
		pool.Close()
		os.Exit(1)
	}
}
