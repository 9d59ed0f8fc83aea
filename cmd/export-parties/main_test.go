package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"contractlens/internal/models"
)

func TestWriteWorkbook(t *testing.T) {
	matched := 1
	analyzed := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	failure := "recognizer unavailable"
	docs := []*models.ContractDocument{
		{
			ID:     uuid.New(),
			Name:   "nda.docx",
			Status: models.AnalysisStatusComplete,
			Parties: &models.PartyPair{
				Party1: models.Party{FullName: "ABC Pty Ltd", Role: models.RoleDiscloser},
				Party2: models.Party{FullName: "XYZ Inc", ShortName: "Company", Role: models.RoleEither},
			},
			MatchedCase: &matched,
			AnalyzedAt:  &analyzed,
			PersonalData: []models.PersonalDataFinding{
				{Kind: models.PersonalDataEmail, Text: "a@abc.com"},
				{Kind: models.PersonalDataEmail, Text: "b@abc.com"},
				{Kind: models.PersonalDataABN, Text: "51 824 753 556"},
			},
		},
		{
			ID:        uuid.New(),
			Name:      "broken.txt",
			Status:    models.AnalysisStatusError,
			LastError: &failure,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeWorkbook(&buf, docs))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])

	first := rows[1]
	assert.Equal(t, "nda.docx", first[1])
	assert.Equal(t, "complete", first[2])
	assert.Equal(t, "1", first[3])
	assert.Equal(t, "ABC Pty Ltd", first[4])
	assert.Equal(t, "Company", first[8])
	assert.Equal(t, models.RoleEither, first[9])
	assert.Equal(t, "a@abc.com; b@abc.com", first[10])
	assert.Equal(t, "51 824 753 556", first[12])
	assert.Equal(t, "2026-02-03T04:05:06Z", first[14])

	second := rows[2]
	assert.Equal(t, "error", second[2])
	assert.Equal(t, failure, second[len(second)-1])
}
