package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"contractlens/internal/repositories"
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

	repo := repositories.NewDocumentRepository(pool)

	stats, err := repo.Stats(ctx)
	if err != nil {
		log.Fatal("Failed to count:", err)
	}

	fmt.Printf("📊 Database Statistics:\n")
	fmt.Printf("   Documents: %d\n", stats.Total)
	fmt.Printf("   Pending: %d\n", stats.Pending)
	fmt.Printf("   Complete: %d\n", stats.Complete)
	fmt.Printf("   Needs review: %d\n", stats.NeedsReview)
	fmt.Printf("   Errors: %d\n", stats.Errors)

	counts, err := repo.CaseCounts(ctx)
	if err != nil {
		log.Fatal("Failed to count cases:", err)
	}
	if len(counts) > 0 {
		cases := make([]int, 0, len(counts))
		for c := range counts {
			cases = append(cases, c)
		}
		sort.Ints(cases)

		fmt.Printf("\n🧩 Resolved by case:\n")
		for _, c := range cases {
			fmt.Printf("   Case %d: %d\n", c, counts[c])
		}
	}

	// Show the most recently created documents
	recent, err := repo.ListRecent(ctx, 5)
	if err != nil {
		log.Fatal("Failed to query:", err)
	}

	fmt.Printf("\n📋 Recent documents:\n")
	for _, doc := range recent {
		parties := "-"
		if doc.Parties != nil && !doc.Parties.IsZero() {
			parties = doc.Parties.Party1.FullName + " / " + doc.Parties.Party2.FullName
		}
		fmt.Printf("   %s: %s [%s] %s\n", doc.ID.String()[:8]+"...", doc.Name, doc.Status, parties)
	}
}
