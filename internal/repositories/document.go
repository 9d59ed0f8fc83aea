package repositories

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"contractlens/internal/models"
)

// ErrDocumentNotFound is returned when no document matches the lookup
var ErrDocumentNotFound = errors.New("document not found")

const documentColumns = `
	id, name, source_type, raw_text, content_hash, line_count,
	status, parties, matched_case, personal_data, last_error,
	analyzed_at, created_at, updated_at`

type DocumentRepository struct {
	db *pgxpool.Pool
}

func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// UpsertDocument stores a document keyed by content hash. Re-ingesting the
// same content only refreshes its name; the existing id and analysis are
// kept. doc.ID is set to the stored id. inserted reports whether the row
// is new.
func (r *DocumentRepository) UpsertDocument(ctx context.Context, doc *models.ContractDocument) (inserted bool, err error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now()

	err = r.db.QueryRow(ctx, `
		INSERT INTO contract_document (
			id, name, source_type, raw_text, content_hash, line_count,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (content_hash) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = EXCLUDED.updated_at
		RETURNING id, (xmax = 0) AS inserted
	`,
		doc.ID,
		doc.Name,
		string(doc.SourceType),
		doc.RawText,
		doc.ContentHash,
		doc.LineCount,
		string(models.AnalysisStatusPending),
		now,
	).Scan(&doc.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert document: %w", err)
	}
	return inserted, nil
}

// SaveAnalysis records the outcome of analyzing doc.
func (r *DocumentRepository) SaveAnalysis(ctx context.Context, doc *models.ContractDocument) error {
	partiesJSON, err := marshalNullable(doc.Parties)
	if err != nil {
		return fmt.Errorf("failed to marshal parties: %w", err)
	}
	var findingsJSON []byte
	if doc.PersonalData != nil {
		if findingsJSON, err = json.Marshal(doc.PersonalData); err != nil {
			return fmt.Errorf("failed to marshal personal_data: %w", err)
		}
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE contract_document SET
			status = $2,
			parties = $3,
			matched_case = $4,
			personal_data = $5,
			line_count = $6,
			last_error = $7,
			analyzed_at = $8,
			updated_at = now()
		WHERE id = $1
	`,
		doc.ID,
		string(doc.Status),
		partiesJSON,
		doc.MatchedCase,
		findingsJSON,
		doc.LineCount,
		doc.LastError,
		doc.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// GetDocument retrieves a full document record by id
func (r *DocumentRepository) GetDocument(ctx context.Context, id uuid.UUID) (*models.ContractDocument, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM contract_document WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListForAnalysis returns the next page of up to limit documents in any of
// statuses, oldest first, resuming after cursor ("" for the first page).
// Keyset paging keeps the position stable while earlier pages are being
// re-analyzed and move to another status.
func (r *DocumentRepository) ListForAnalysis(ctx context.Context, statuses []models.AnalysisStatus, cursor string, limit int) (*ListResult, error) {
	return r.ListDocuments(ctx, ListParams{Statuses: statuses, Cursor: cursor, Limit: limit})
}

// ListRecent returns the limit most recently created documents, newest first
func (r *DocumentRepository) ListRecent(ctx context.Context, limit int) ([]*models.ContractDocument, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+documentColumns+`
		FROM contract_document
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.ContractDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// MaxListLimit is the largest page ListDocuments returns
const MaxListLimit = 1000

// ListParams filters and pages ListDocuments
type ListParams struct {
	Status     models.AnalysisStatus
	Statuses   []models.AnalysisStatus // any of; combined with Status when both are set
	SearchText string // matches document name or either party's full name
	Limit      int
	Cursor     string
}

type ListResult struct {
	Items      []*models.ContractDocument
	NextCursor string
	HasMore    bool
}

// Cursor is the keyset position after the last returned document
type Cursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        uuid.UUID `json:"id"`
}

func encodeCursor(cursor Cursor) (string, error) {
	data, err := json.Marshal(cursor)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

func decodeCursor(encoded string) (*Cursor, error) {
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, err
	}
	return &cursor, nil
}

// buildListQuery assembles the filtered keyset query for ListDocuments.
func buildListQuery(params ListParams) (string, []any, error) {
	conditions := []string{}
	args := []any{}
	argPos := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(params.Status))
		argPos++
	}

	if len(params.Statuses) > 0 {
		values := make([]string, len(params.Statuses))
		for i, s := range params.Statuses {
			values[i] = string(s)
		}
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argPos))
		args = append(args, values)
		argPos++
	}

	if params.SearchText != "" {
		conditions = append(conditions, fmt.Sprintf(
			`(name ILIKE $%d ESCAPE '\' OR parties->'party1'->>'fullName' ILIKE $%d ESCAPE '\' OR parties->'party2'->>'fullName' ILIKE $%d ESCAPE '\')`,
			argPos, argPos, argPos,
		))
		args = append(args, "%"+escapeLike(params.SearchText)+"%")
		argPos++
	}

	if params.Cursor != "" {
		cursor, err := decodeCursor(params.Cursor)
		if err != nil {
			return "", nil, fmt.Errorf("invalid cursor: %w", err)
		}
		conditions = append(conditions, fmt.Sprintf("(created_at, id) > ($%d, $%d)", argPos, argPos+1))
		args = append(args, cursor.CreatedAt, cursor.ID)
		argPos += 2
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(
		"SELECT %s FROM contract_document %s ORDER BY created_at ASC, id ASC LIMIT $%d",
		documentColumns, whereClause, argPos,
	)
	// Fetch one extra row to detect another page
	args = append(args, params.Limit+1)
	return query, args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ListDocuments pages through documents in creation order.
func (r *DocumentRepository) ListDocuments(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Limit <= 0 || params.Limit > MaxListLimit {
		params.Limit = 100
	}
	query, args, err := buildListQuery(params)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	result := &ListResult{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		result.Items = append(result.Items, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	if len(result.Items) > params.Limit {
		result.Items = result.Items[:params.Limit]
		result.HasMore = true
		last := result.Items[len(result.Items)-1]
		if result.NextCursor, err = encodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID}); err != nil {
			return nil, fmt.Errorf("failed to encode cursor: %w", err)
		}
	}
	return result, nil
}

// Stats counts documents per analysis status
func (r *DocumentRepository) Stats(ctx context.Context) (models.DocumentStats, error) {
	var stats models.DocumentStats
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'complete'),
			COUNT(*) FILTER (WHERE status = 'needs_review'),
			COUNT(*) FILTER (WHERE status = 'error')
		FROM contract_document
	`).Scan(&stats.Total, &stats.Pending, &stats.Complete, &stats.NeedsReview, &stats.Errors)
	if err != nil {
		return stats, fmt.Errorf("failed to count documents: %w", err)
	}
	return stats, nil
}

// CaseCounts returns how many documents each heuristic resolved
func (r *DocumentRepository) CaseCounts(ctx context.Context) (map[int]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT matched_case, COUNT(*)
		FROM contract_document
		WHERE matched_case IS NOT NULL AND status = 'complete'
		GROUP BY matched_case
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count cases: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var matched, count int
		if err := rows.Scan(&matched, &count); err != nil {
			return nil, fmt.Errorf("failed to scan case count: %w", err)
		}
		counts[matched] = count
	}
	return counts, rows.Err()
}

func scanDocument(row pgx.Row) (*models.ContractDocument, error) {
	var doc models.ContractDocument
	var sourceType, status string
	var partiesJSON, findingsJSON []byte

	err := row.Scan(
		&doc.ID,
		&doc.Name,
		&sourceType,
		&doc.RawText,
		&doc.ContentHash,
		&doc.LineCount,
		&status,
		&partiesJSON,
		&doc.MatchedCase,
		&findingsJSON,
		&doc.LastError,
		&doc.AnalyzedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.SourceType = models.DocumentSourceType(sourceType)
	doc.Status = models.AnalysisStatus(status)

	if len(partiesJSON) > 0 {
		var parties models.PartyPair
		if err := json.Unmarshal(partiesJSON, &parties); err != nil {
			return nil, fmt.Errorf("failed to unmarshal parties: %w", err)
		}
		doc.Parties = &parties
	}
	if len(findingsJSON) > 0 {
		if err := json.Unmarshal(findingsJSON, &doc.PersonalData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal personal_data: %w", err)
		}
	}
	return &doc, nil
}

// marshalNullable encodes v as JSON, or nil (SQL NULL) for a nil pointer.
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
