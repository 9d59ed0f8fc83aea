package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentSourceType represents the format a contract document arrived in
type DocumentSourceType string

const (
	SourceTypeText DocumentSourceType = "text"
	SourceTypeHTML DocumentSourceType = "html"
	SourceTypeDOCX DocumentSourceType = "docx"
)

// AnalysisStatus represents where a document is in party identification
type AnalysisStatus string

const (
	AnalysisStatusPending     AnalysisStatus = "pending"
	AnalysisStatusComplete    AnalysisStatus = "complete"
	AnalysisStatusNeedsReview AnalysisStatus = "needs_review"
	AnalysisStatusError       AnalysisStatus = "error"
)

// StatusFor maps an identification result to the status stored with it.
// An incomplete pair is a manual review item, never a processing failure.
func StatusFor(pair PartyPair) AnalysisStatus {
	if pair.Complete() {
		return AnalysisStatusComplete
	}
	return AnalysisStatusNeedsReview
}

// PersonalDataKind labels a personal-data finding
type PersonalDataKind string

const (
	PersonalDataEmail  PersonalDataKind = "EMAIL"
	PersonalDataPhone  PersonalDataKind = "PHONE"
	PersonalDataURL    PersonalDataKind = "URL"
	PersonalDataABN    PersonalDataKind = "ABN"
	PersonalDataACN    PersonalDataKind = "ACN"
	PersonalDataTFN    PersonalDataKind = "TFN"
	PersonalDataPerson PersonalDataKind = "PERSON"
)

// PersonalDataFinding is one match of a personal-data pattern.
// Start and End are byte offsets into the scanned text.
type PersonalDataFinding struct {
	Kind  PersonalDataKind `json:"kind"`
	Text  string           `json:"text"`
	Start int              `json:"start"`
	End   int              `json:"end"`
}

// ContractDocument represents a contract and its analysis record in the database
type ContractDocument struct {
	ID           uuid.UUID             `json:"id"`
	Name         string                `json:"name"`
	SourceType   DocumentSourceType    `json:"sourceType"`
	RawText      string                `json:"rawText"`
	ContentHash  string                `json:"contentHash"`
	LineCount    int                   `json:"lineCount"`
	Status       AnalysisStatus        `json:"status"`
	Parties      *PartyPair            `json:"parties,omitempty"`
	MatchedCase  *int                  `json:"matchedCase,omitempty"`
	PersonalData []PersonalDataFinding `json:"personalData,omitempty"`
	LastError    *string               `json:"lastError,omitempty"`
	AnalyzedAt   *time.Time            `json:"analyzedAt,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// DocumentStats summarises analysis progress across all stored documents
type DocumentStats struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Complete    int `json:"complete"`
	NeedsReview int `json:"needsReview"`
	Errors      int `json:"errors"`
}
