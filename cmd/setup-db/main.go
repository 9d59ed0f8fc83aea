package main

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	// Enable pg_trgm extension for fuzzy party name search
	_, err = pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS pg_trgm;`)
	if err != nil {
		log.Fatal("Failed to enable pg_trgm extension:", err)
	}
	log.Println("✅ Enabled pg_trgm extension")

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS contract_document (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			source_type TEXT NOT NULL CHECK (source_type IN ('text', 'html', 'docx')),
			raw_text TEXT NOT NULL,
			content_hash TEXT NOT NULL UNIQUE,
			line_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'complete', 'needs_review', 'error')),
			parties JSONB,
			matched_case INTEGER CHECK (matched_case BETWEEN 1 AND 8),
			personal_data JSONB,
			last_error TEXT,
			analyzed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		log.Fatal("Failed to create contract_document table:", err)
	}
	log.Println("✅ Created contract_document table")

	// Indexes for the backfill queue, listing and party search
	indexes := []struct {
		name string
		sql  string
	}{
		{"status", `CREATE INDEX IF NOT EXISTS idx_contract_document_status ON contract_document (status, created_at, id);`},
		{"created_at", `CREATE INDEX IF NOT EXISTS idx_contract_document_created ON contract_document (created_at, id);`},
		{"party1 name", `CREATE INDEX IF NOT EXISTS idx_contract_document_party1_trgm ON contract_document USING gin ((parties->'party1'->>'fullName') gin_trgm_ops);`},
		{"party2 name", `CREATE INDEX IF NOT EXISTS idx_contract_document_party2_trgm ON contract_document USING gin ((parties->'party2'->>'fullName') gin_trgm_ops);`},
		{"name", `CREATE INDEX IF NOT EXISTS idx_contract_document_name_trgm ON contract_document USING gin (name gin_trgm_ops);`},
	}
	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx.sql); err != nil {
			log.Fatalf("Failed to create %s index: %v", idx.name, err)
		}
		log.Printf("✅ Created %s index", idx.name)
	}

	log.Println("✅ Database setup complete")
}
