package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"contractlens/internal/models"
)

type personalDataDetector struct {
	kind    models.PersonalDataKind
	pattern *regexp.Regexp
	// group is the submatch holding the value; 0 means the whole match
	group int
	valid func(string) bool
}

// Detectors run in this order; a later match overlapping an earlier one is
// discarded, so labelled registration numbers win over phone numbers.
var personalDataDetectors = []personalDataDetector{
	{kind: models.PersonalDataTFN, pattern: regexp.MustCompile(`(?i)\b(?:TFN|tax file number)\b[:\s]*((?:\d[ ]?){7,8}\d)`), group: 1},
	{kind: models.PersonalDataABN, pattern: regexp.MustCompile(`\bABN\b[:\s]*((?:\d[ ]?){10}\d)`), group: 1},
	{kind: models.PersonalDataACN, pattern: regexp.MustCompile(`\bACN\b[:\s]*((?:\d[ ]?){8}\d)`), group: 1},
	{kind: models.PersonalDataABN, pattern: regexp.MustCompile(`\b\d{2} \d{3} \d{3} \d{3}\b`), valid: validABN},
	{kind: models.PersonalDataEmail, pattern: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{kind: models.PersonalDataURL, pattern: regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)},
	{kind: models.PersonalDataPhone, pattern: regexp.MustCompile(`(?:\+61[ -]?|\(0\d\)[ ]?|\b0)[2-478](?:[ -]?\d){8}\b|\(?\b\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
}

// validABN applies the ABN check digit algorithm: subtract one from the
// first digit, weight the digits and require the sum to divide by 89.
func validABN(s string) bool {
	weights := [11]int{10, 1, 3, 5, 7, 9, 11, 13, 15, 17, 19}
	digits := make([]int, 0, 11)
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) != 11 {
		return false
	}
	digits[0]--
	sum := 0
	for i, d := range digits {
		sum += d * weights[i]
	}
	return sum%89 == 0
}

// ScanPersonalData finds personal and identifying data in text: email
// addresses, phone numbers, URLs, ABN/ACN/TFN numbers and, when recognizer
// is not nil, person names. Findings are ordered by offset and never overlap.
func ScanPersonalData(ctx context.Context, text string, recognizer EntityRecognizer) ([]models.PersonalDataFinding, error) {
	var findings []models.PersonalDataFinding
	overlaps := func(start, end int) bool {
		for _, f := range findings {
			if start < f.End && f.Start < end {
				return true
			}
		}
		return false
	}

	for _, d := range personalDataDetectors {
		for _, m := range d.pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2*d.group], m[2*d.group+1]
			value := strings.TrimSpace(text[start:end])
			end = start + len(value)
			if d.valid != nil && !d.valid(value) {
				continue
			}
			if overlaps(start, end) {
				continue
			}
			findings = append(findings, models.PersonalDataFinding{Kind: d.kind, Text: value, Start: start, End: end})
		}
	}

	if recognizer != nil {
		spans, err := recognizer.Persons(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to recognize persons: %w", err)
		}
		for _, s := range spans {
			if s.Start < 0 || s.End > len(text) || s.Start >= s.End || overlaps(s.Start, s.End) {
				continue
			}
			findings = append(findings, models.PersonalDataFinding{
				Kind: models.PersonalDataPerson, Text: s.Text, Start: s.Start, End: s.End,
			})
		}
	}

	sort.Slice(findings, func(i, j int) bool { return findings[i].Start < findings[j].Start })
	return findings, nil
}

// Redact replaces each finding in text with "[REDACTED:<KIND>]". Where
// findings overlap the longest one is kept. Findings whose offsets do not
// fit text are ignored.
func Redact(text string, findings []models.PersonalDataFinding) string {
	candidates := make([]models.PersonalDataFinding, 0, len(findings))
	for _, f := range findings {
		if f.Start >= 0 && f.End <= len(text) && f.Start < f.End {
			candidates = append(candidates, f)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].End-candidates[i].Start > candidates[j].End-candidates[j].Start
	})

	var kept []models.PersonalDataFinding
	for _, c := range candidates {
		clash := false
		for _, k := range kept {
			if c.Start < k.End && k.Start < c.End {
				clash = true
				break
			}
		}
		if !clash {
			kept = append(kept, c)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })

	var b strings.Builder
	pos := 0
	for _, k := range kept {
		b.WriteString(text[pos:k.Start])
		b.WriteString("[REDACTED:")
		b.WriteString(string(k.Kind))
		b.WriteString("]")
		pos = k.End
	}
	b.WriteString(text[pos:])
	return b.String()
}

// FindingTexts returns the distinct texts of findings of the given kind, in
// order of first appearance.
func FindingTexts(findings []models.PersonalDataFinding, kind models.PersonalDataKind) []string {
	var texts []string
	for _, f := range findings {
		if f.Kind == kind {
			texts = append(texts, f.Text)
		}
	}
	return deduplicateStrings(texts)
}

// deduplicateStrings removes duplicates while preserving order
func deduplicateStrings(slice []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, s := range slice {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}
