package services

import (
	"strings"

	"contractlens/internal/models"
)

// findAnchor returns the index of the first line containing label
// (case-insensitive). A line that is only the label, optionally followed by
// a colon, is a heading; the anchor is then the line after it.
func findAnchor(lines []string, label string) int {
	for i, line := range lines {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, label) {
			continue
		}
		trimmed := strings.TrimSpace(lower)
		if trimmed == label || trimmed == label+":" {
			if i+1 < len(lines) {
				return i + 1
			}
			return -1
		}
		return i
	}
	return -1
}

// trimLabel strips a leading label from line, matched case-insensitively and
// followed by a colon, a space or nothing.
func trimLabel(line, label string) string {
	s := strings.TrimSpace(line)
	if len(s) < len(label) || !strings.EqualFold(s[:len(label)], label) {
		return s
	}
	rest := s[len(label):]
	if rest != "" && rest[0] != ':' && rest[0] != ' ' {
		return s
	}
	return strings.TrimSpace(strings.TrimLeft(rest, ": "))
}

// firstAndSecondParty handles "First Party: ..." / "Second Party: ..."
// layouts, labelled inline or as headings over the party's line.
func (r caseRun) firstAndSecondParty(lines []string) (models.PartyPair, error) {
	var pair models.PartyPair
	i1 := findAnchor(lines, "first party")
	i2 := findAnchor(lines, "second party")
	if i1 < 0 || i2 < 0 {
		return pair, nil
	}

	text1 := trimLabel(lines[i1], "first party")
	name, err := r.firstOrganization(i1, text1)
	if err != nil {
		return pair, err
	}
	pair.Party1.FullName = name
	classify(&pair.Party1, DefinedTerm(text1), DiscloserKeywords, models.RoleDiscloser)

	text2 := trimLabel(lines[i2], "second party")
	name, err = r.firstOrganization(i2, text2)
	if err != nil {
		return pair, err
	}
	pair.Party2.FullName = name
	classify(&pair.Party2, DefinedTerm(text2), ReceivingKeywords, models.RoleDisclosee)
	return pair, nil
}

// addressedToIndividual handles letter-style agreements: an organization
// after "To:" and an individual who signs with "I, <name>, ...".
func (r caseRun) addressedToIndividual(lines []string) (models.PartyPair, error) {
	var pair models.PartyPair
	i1 := -1
	for i, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		if lower == "to" || lower == "to:" {
			if i+1 < len(lines) {
				i1 = i + 1
			}
			break
		}
		if strings.Contains(lower, "to:") {
			i1 = i
			break
		}
	}
	if i1 < 0 {
		return pair, nil
	}

	i2 := -1
	for i := i1 + 1; i < len(lines); i++ {
		if strings.Contains(strings.ToLower(lines[i]), "i,") {
			i2 = i
			break
		}
	}
	if i2 < 0 {
		return pair, nil
	}

	text1 := trimLabel(lines[i1], "to")
	name, err := r.firstOrganization(i1, text1)
	if err != nil {
		return pair, err
	}
	pair.Party1.FullName = name
	classify(&pair.Party1, DefinedTerm(text1), DiscloserKeywords, models.RoleDiscloser)

	person, err := r.firstPerson(i2, lines[i2])
	if err != nil {
		return pair, err
	}
	pair.Party2.FullName = person
	pair.Party2.Role = models.RoleDisclosuree
	return pair, nil
}
