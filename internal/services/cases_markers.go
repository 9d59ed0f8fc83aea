package services

import (
	"strings"

	"contractlens/internal/models"
)

// classify sets a party's role from the defined term on its line. A term
// matching keywords gives the canonical role and no short name; any other
// term leaves the role ambiguous but keeps the term as the short name.
func classify(party *models.Party, term string, keywords []string, canonical string) {
	switch {
	case term == "":
		party.Role = models.RoleEither
		party.ShortName = ""
	case containsAny(term, keywords):
		party.Role = canonical
		party.ShortName = ""
	default:
		party.Role = models.RoleEither
		party.ShortName = aliasOf(term)
	}
}

// classifyPositional gives the party its role from position alone. The term
// only decides whether a short name is kept.
func classifyPositional(party *models.Party, term string, keywords []string, role string) {
	party.Role = role
	if containsAny(term, keywords) {
		party.ShortName = ""
	} else {
		party.ShortName = aliasOf(term)
	}
}

// markersOnSeparateLines handles documents where the discloser and the
// receiving party are each introduced on a line of their own.
func (r caseRun) markersOnSeparateLines(lines []string) (models.PartyPair, error) {
	var pair models.PartyPair
	i1 := indexOfLineContaining(lines, DiscloserKeywords, 0)
	i2 := indexOfLineContaining(lines, ReceivingKeywords, 0)
	if i1 < 0 || i2 < 0 || i1 == i2 {
		return pair, nil
	}

	if containsAny(DefinedTerm(lines[i1]), DiscloserKeywords) {
		name, err := r.firstOrganization(i1, lines[i1])
		if err != nil {
			return pair, err
		}
		pair.Party1.FullName = name
		pair.Party1.Role = models.RoleDiscloser
	}
	if containsAny(DefinedTerm(lines[i2]), ReceivingKeywords) {
		name, err := r.firstOrganization(i2, lines[i2])
		if err != nil {
			return pair, err
		}
		pair.Party2.FullName = name
		pair.Party2.Role = models.RoleDisclosee
	}
	return pair, nil
}

// receivingMarkerOnly handles documents that label the receiving party but
// not the discloser. The discloser is the nearest parenthesized line naming
// an organization, looking above the receiving line first.
func (r caseRun) receivingMarkerOnly(lines []string) (models.PartyPair, error) {
	var pair models.PartyPair
	i2 := indexOfLineContaining(lines, ReceivingKeywords, 0)
	if i2 < 0 {
		return pair, nil
	}

	if containsAny(DefinedTerm(lines[i2]), ReceivingKeywords) {
		name, err := r.firstOrganization(i2, lines[i2])
		if err != nil {
			return pair, err
		}
		pair.Party2.FullName = name
		pair.Party2.Role = models.RoleDisclosee
	}

	i1, name, err := r.parenthesizedOrganization(lines, i2-1, -1)
	if err != nil {
		return pair, err
	}
	if i1 < 0 {
		i1, name, err = r.parenthesizedOrganization(lines, i2+1, 1)
		if err != nil {
			return pair, err
		}
	}
	if i1 >= 0 {
		pair.Party1.FullName = name
		classifyPositional(&pair.Party1, DefinedTerm(lines[i1]), DiscloserKeywords, models.RoleDiscloser)
	}
	return pair, nil
}

// discloserMarkerOnly mirrors receivingMarkerOnly: the discloser is labelled
// and the receiving party is the next parenthesized organization below it.
func (r caseRun) discloserMarkerOnly(lines []string) (models.PartyPair, error) {
	var pair models.PartyPair
	i1 := indexOfLineContaining(lines, DiscloserKeywords, 0)
	if i1 < 0 {
		return pair, nil
	}

	if containsAny(DefinedTerm(lines[i1]), DiscloserKeywords) {
		name, err := r.firstOrganization(i1, lines[i1])
		if err != nil {
			return pair, err
		}
		pair.Party1.FullName = name
		pair.Party1.Role = models.RoleDiscloser
	}

	i2, name, err := r.parenthesizedOrganization(lines, i1+1, 1)
	if err != nil {
		return pair, err
	}
	if i2 >= 0 {
		pair.Party2.FullName = name
		classifyPositional(&pair.Party2, DefinedTerm(lines[i2]), ReceivingKeywords, models.RoleDisclosee)
	}
	return pair, nil
}

// parenthesizedOrganization walks lines from start in direction step (+1 or
// -1) and returns the first line containing "(" on which the recognizer finds
// an organization, with that organization's name. It returns -1 when the walk
// runs off either end.
func (r caseRun) parenthesizedOrganization(lines []string, start, step int) (int, string, error) {
	for i := start; i >= 0 && i < len(lines); i += step {
		if !strings.Contains(lines[i], "(") {
			continue
		}
		name, err := r.firstOrganization(i, lines[i])
		if err != nil {
			return -1, "", err
		}
		if name != "" {
			return i, name, nil
		}
	}
	return -1, "", nil
}

// markersOnSameLine handles a single line naming both parties, e.g.
// "between Acme Corp (the Discloser) and Beta LLC (the Recipient)". It needs
// exactly two organizations on the line; roles are the defined terms
// verbatim. Not part of the cascade.
func (r caseRun) markersOnSameLine(lines []string) (models.PartyPair, error) {
	var pair models.PartyPair
	i1 := indexOfLineContaining(lines, DiscloserKeywords, 0)
	i2 := indexOfLineContaining(lines, ReceivingKeywords, 0)
	if i1 < 0 || i1 != i2 {
		return pair, nil
	}

	line := lines[i1]
	orgs, err := r.organizations(i1, line)
	if err != nil {
		return pair, err
	}
	if len(orgs) != 2 {
		return pair, nil
	}

	keys := definedTermGroups(line)
	pair.Party1.FullName = orgs[0].Text
	pair.Party2.FullName = orgs[1].Text
	if len(keys) > 0 {
		pair.Party1.Role = keys[0].Text
	}
	if len(keys) > 1 {
		pair.Party2.Role = keys[1].Text
	}
	return pair, nil
}
