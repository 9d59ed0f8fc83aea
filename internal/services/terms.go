package services

import (
	"regexp"
	"strings"
)

// DiscloserKeywords mark the party sharing confidential information.
var DiscloserKeywords = []string{
	"Discloser", "Supplier", "Provider", "Disclosing Party", "the Discloser", "a Disclosing Party",
}

// ReceivingKeywords mark the party receiving confidential information.
var ReceivingKeywords = []string{
	"Receiving Party", "Recipient", "the Recipient", "RECIPIENT",
}

var (
	parenGroupPattern = regexp.MustCompile(`\(([^()]*)\)`)
	quotedTermPattern = regexp.MustCompile(`["“”]([^"“”]+)["“”]`)
)

// parenGroup is one "(...)" group found in a line. Start and End are byte
// offsets of the whole group, parentheses included.
type parenGroup struct {
	Text  string
	Start int
	End   int
}

// isRegistrationNumber reports whether a parenthesized group is an ABN/ACN
// annotation rather than a defined term.
func isRegistrationNumber(text string) bool {
	return strings.Contains(text, "ABN") || strings.Contains(text, "ACN")
}

// definedTermGroups returns every parenthesized group in line that is not an
// ABN/ACN annotation, in order of appearance.
func definedTermGroups(line string) []parenGroup {
	var groups []parenGroup
	for _, m := range parenGroupPattern.FindAllStringSubmatchIndex(line, -1) {
		text := line[m[2]:m[3]]
		if isRegistrationNumber(text) {
			continue
		}
		groups = append(groups, parenGroup{Text: text, Start: m[0], End: m[1]})
	}
	return groups
}

// DefinedTerm returns the inner text of the first parenthesized group in
// line that is not an ABN/ACN annotation, or "" when there is none.
func DefinedTerm(line string) string {
	groups := definedTermGroups(line)
	if len(groups) == 0 {
		return ""
	}
	return groups[0].Text
}

// aliasOf turns a defined term into the short name kept for a party:
// the quoted part when the term quotes one (`the "Company"` -> Company),
// otherwise the trimmed term.
func aliasOf(term string) string {
	if m := quotedTermPattern.FindStringSubmatch(term); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(term)
}

// containsAny reports whether s contains any of the keywords.
func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// indexOfLineContaining returns the index of the first line at or after
// from that contains any keyword, or -1.
func indexOfLineContaining(lines []string, keywords []string, from int) int {
	for i := max(from, 0); i < len(lines); i++ {
		if containsAny(lines[i], keywords) {
			return i
		}
	}
	return -1
}
