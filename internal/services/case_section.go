package services

import (
	"strings"

	"contractlens/internal/models"
)

type organizationHit struct {
	text string
	line int
}

// partiesSection handles agreements that defer the parties to a later block,
// either "(the parties identified below)" or a "Parties:" heading.
func (r caseRun) partiesSection(lines []string) (models.PartyPair, error) {
	var pair models.PartyPair
	hits, err := r.collectSectionOrganizations(lines)
	if err != nil || len(hits) == 0 {
		return pair, err
	}

	first := hits[0]
	second := -1
	for j := 1; j < len(hits); j++ {
		if hits[j].text != first.text {
			second = j
			break
		}
	}

	name, err := r.firstOrganization(first.line, lines[first.line])
	if err != nil {
		return pair, err
	}
	pair.Party1.FullName = first.text
	if name != "" {
		pair.Party1.FullName = name
	}
	classify(&pair.Party1, DefinedTerm(lines[first.line]), DiscloserKeywords, models.RoleDiscloser)

	if second < 0 {
		return pair, nil
	}
	hit := hits[second]
	name, err = r.firstOrganization(hit.line, lines[hit.line])
	if err != nil {
		return pair, err
	}
	pair.Party2.FullName = hit.text
	if name != "" {
		pair.Party2.FullName = name
	}
	classify(&pair.Party2, DefinedTerm(lines[hit.line]), ReceivingKeywords, models.RoleDisclosee)
	return pair, nil
}

// collectSectionOrganizations gathers organization mentions in the order the
// heuristic ranks them. With a "below" reference, the first organization up
// to that line comes first, then every organization from the end of the
// document back to it. With a "Parties" heading, every organization after
// the heading in document order.
func (r caseRun) collectSectionOrganizations(lines []string) ([]organizationHit, error) {
	var hits []organizationHit
	appendAll := func(i int) error {
		orgs, err := r.organizations(i, lines[i])
		if err != nil {
			return err
		}
		for _, o := range orgs {
			hits = append(hits, organizationHit{text: o.Text, line: i})
		}
		return nil
	}

	below := -1
	for i, line := range lines {
		if strings.Contains(line, "identified below") || strings.Contains(line, "specified below") {
			below = i
			break
		}
	}

	if below >= 0 {
		for i := 0; i <= below; i++ {
			name, err := r.firstOrganization(i, lines[i])
			if err != nil {
				return nil, err
			}
			if name != "" {
				hits = append(hits, organizationHit{text: name, line: i})
				break
			}
		}
		for i := len(lines) - 1; i >= below; i-- {
			if err := appendAll(i); err != nil {
				return nil, err
			}
		}
		return hits, nil
	}

	heading := -1
	for i, line := range lines {
		t := strings.ToLower(strings.TrimSpace(line))
		if t == "parties" || t == "parties:" {
			heading = i
			break
		}
	}
	if heading < 0 {
		return nil, nil
	}
	for i := heading + 1; i < len(lines); i++ {
		if err := appendAll(i); err != nil {
			return nil, err
		}
	}
	return hits, nil
}
