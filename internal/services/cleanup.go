package services

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"regexp"
	"strings"
)

// Compiled regex patterns (reused across calls)
var (
	spacePattern   = regexp.MustCompile(`[ \t]{2,}`)
	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
	// Block-level tags become line breaks so paragraphs stay on their own lines
	blockTagPattern = regexp.MustCompile(`(?i)</?(br|p|div|li|tr|h[1-6])(\s[^>]*)?/?>`)
	// Punctuation followed by a spacing entity, e.g. ".&nbsp;"
	punctuationEntityPattern = regexp.MustCompile(`([.,;:!?])(&nbsp;|&ensp;|&emsp;|&thinsp;)`)

	pipeNumberPattern   = regexp.MustCompile(`\|[0-9]+\|`)
	doublePipePattern   = regexp.MustCompile(`\|\|+`)
	pipeOnlyPattern     = regexp.MustCompile(`^[\s|]+$`)
	leadingPipePattern  = regexp.MustCompile(`^\|+\s*`)
	trailingPipePattern = regexp.MustCompile(`\s*\|+$`)
	innerPipePattern    = regexp.MustCompile(`\s*\|\s*`)

	// Table of contents entries: "3. Confidentiality ........ 12"
	tocEntryPattern = regexp.MustCompile(`^.{1,120}?(\.{4,}|…{2,})\s*\d{1,4}$`)
	bulletPattern   = regexp.MustCompile(`^[•▪◦‣●○■□–·]\s*`)
)

// NormalizeLineEndings converts CRLF and lone CR to LF and trims trailing
// blanks on every line.
func NormalizeLineEndings(text string) string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// CleanupDocument tidies text exported from word processors and web pages
// before line extraction: HTML tags are removed (block tags become line
// breaks), entities decoded, table pipes and table-of-contents entries
// dropped, bullet glyphs rewritten as "- " and runs of blank lines collapsed
// to at most two.
func CleanupDocument(rawText string) string {
	cleaned := blockTagPattern.ReplaceAllString(rawText, "\n")
	cleaned = htmlTagPattern.ReplaceAllString(cleaned, " ")
	cleaned = punctuationEntityPattern.ReplaceAllString(cleaned, "$1 ")
	cleaned = html.UnescapeString(cleaned)
	cleaned = strings.ReplaceAll(cleaned, "\u00a0", " ")
	cleaned = NormalizeLineEndings(cleaned)

	var out []string
	blankLineCount := 0
	for _, line := range strings.Split(cleaned, "\n") {
		// Rows made only of pipes are table borders
		if pipeOnlyPattern.MatchString(line) && strings.Contains(line, "|") {
			continue
		}

		line = pipeNumberPattern.ReplaceAllString(line, " ")
		line = doublePipePattern.ReplaceAllString(line, " ")
		line = leadingPipePattern.ReplaceAllString(line, "")
		line = trailingPipePattern.ReplaceAllString(line, "")
		line = innerPipePattern.ReplaceAllString(line, " ")
		line = strings.TrimSpace(spacePattern.ReplaceAllString(line, " "))

		if tocEntryPattern.MatchString(line) {
			continue
		}
		line = bulletPattern.ReplaceAllString(line, "- ")

		if line == "" {
			blankLineCount++
			if blankLineCount <= 2 {
				out = append(out, "")
			}
			continue
		}
		blankLineCount = 0
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// ComputeContentHash computes SHA256 hash of text for change detection
func ComputeContentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
