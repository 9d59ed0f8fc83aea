package repositories

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractlens/internal/models"
)

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ID:        uuid.MustParse("3f1c9a52-8a0e-4a0c-b3a6-5c1f0f3b8d21"),
	}
	encoded, err := encodeCursor(cursor)
	require.NoError(t, err)

	decoded, err := decodeCursor(encoded)
	require.NoError(t, err)
	assert.True(t, cursor.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, cursor.ID, decoded.ID)

	_, err = decodeCursor("not base64!")
	assert.Error(t, err)
}

func TestBuildListQuery(t *testing.T) {
	t.Run("no filters", func(t *testing.T) {
		query, args, err := buildListQuery(ListParams{Limit: 10})
		require.NoError(t, err)
		assert.NotContains(t, query, "WHERE")
		assert.Contains(t, query, "LIMIT $1")
		assert.Equal(t, []any{11}, args)
	})

	t.Run("status and search", func(t *testing.T) {
		query, args, err := buildListQuery(ListParams{
			Status:     models.AnalysisStatusNeedsReview,
			SearchText: "Acme",
			Limit:      5,
		})
		require.NoError(t, err)
		assert.Contains(t, query, "WHERE status = $1 AND (name ILIKE $2")
		assert.Contains(t, query, "LIMIT $3")
		assert.Equal(t, []any{"needs_review", "%Acme%", 6}, args)
	})

	t.Run("any of statuses", func(t *testing.T) {
		query, args, err := buildListQuery(ListParams{
			Statuses: []models.AnalysisStatus{models.AnalysisStatusPending, models.AnalysisStatusError},
			Limit:    100,
		})
		require.NoError(t, err)
		assert.Contains(t, query, "WHERE status = ANY($1)")
		assert.Contains(t, query, "ORDER BY created_at ASC, id ASC LIMIT $2")
		assert.Equal(t, []any{[]string{"pending", "error"}, 101}, args)
	})

	t.Run("search wildcards match literally", func(t *testing.T) {
		query, args, err := buildListQuery(ListParams{SearchText: `50%_Co\`, Limit: 1})
		require.NoError(t, err)
		assert.Contains(t, query, `name ILIKE $1 ESCAPE '\'`)
		assert.Equal(t, `%50\%\_Co\\%`, args[0])
	})

	t.Run("cursor", func(t *testing.T) {
		id := uuid.New()
		created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		encoded, err := encodeCursor(Cursor{CreatedAt: created, ID: id})
		require.NoError(t, err)

		query, args, err := buildListQuery(ListParams{Cursor: encoded, Limit: 2})
		require.NoError(t, err)
		assert.Contains(t, query, "(created_at, id) > ($1, $2)")
		assert.Contains(t, query, "LIMIT $3")
		require.Len(t, args, 3)
		assert.Equal(t, id, args[1])
		assert.Equal(t, 3, args[2])
	})

	t.Run("invalid cursor", func(t *testing.T) {
		_, _, err := buildListQuery(ListParams{Cursor: "%%%", Limit: 1})
		assert.ErrorContains(t, err, "invalid cursor")
	})
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "Acme Pty Ltd", escapeLike("Acme Pty Ltd"))
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `C:\\data`, escapeLike(`C:\data`))
}

func TestMarshalNullable(t *testing.T) {
	data, err := marshalNullable[models.PartyPair](nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	pair := &models.PartyPair{
		Party1: models.Party{FullName: "Acme Corp", Role: models.RoleDiscloser},
	}
	data, err = marshalNullable(pair)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"fullName":"Acme Corp"`)
}
