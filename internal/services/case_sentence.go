package services

import (
	"regexp"
	"strings"

	"contractlens/internal/models"
)

// sentenceKeywords are tried in order; the sentence is cut after the first
// one found.
var sentenceKeywords = []string{"made", "entered", "between"}

// capitalizedRunPattern matches runs of capitalized words, allowing "&"
// between them, e.g. "Acme Holdings Pty. Ltd" or "Smith & Jones".
var capitalizedRunPattern = regexp.MustCompile(`[A-Z][\w&.'-]*(?:\s+(?:&\s+)?[A-Z][\w&.'-]*)*`)

// isAgreementSentenceLine reports whether a line looks like the opening
// "This agreement is made between X and Y" sentence.
func isAgreementSentenceLine(line string) bool {
	return strings.Contains(line, "is made") ||
		strings.Contains(line, "entered") ||
		(strings.Contains(line, "between") && strings.Contains(line, "and"))
}

// cutAfterKeyword returns the part of s after the first sentence keyword.
func cutAfterKeyword(s string) (string, bool) {
	for _, kw := range sentenceKeywords {
		if i := strings.Index(s, kw); i >= 0 {
			return s[i+len(kw):], true
		}
	}
	return "", false
}

// madeBetweenSentence handles both parties named in one sentence, e.g.
// "This Agreement is made between Acme Corp (the Discloser) and Beta LLC".
// Roles come from the parenthesized terms and where they sit relative to
// the two names.
func (r caseRun) madeBetweenSentence(lines []string) (models.PartyPair, error) {
	var pair models.PartyPair
	idx := -1
	for i, line := range lines {
		if isAgreementSentenceLine(line) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return pair, nil
	}

	sentences, err := r.sentences(idx, lines[idx])
	if err != nil {
		return pair, err
	}
	var text string
	found := false
	for _, s := range sentences {
		if text, found = cutAfterKeyword(s); found {
			break
		}
	}
	if !found {
		return pair, nil
	}

	keys := definedTermGroups(text)

	p1End := -1
	for _, loc := range capitalizedRunPattern.FindAllStringIndex(text, -1) {
		run := text[loc[0]:loc[1]]
		name, err := r.firstOrganization(idx, "This is "+run)
		if err != nil {
			return pair, err
		}
		if name == "" {
			continue
		}
		pair.Party1.FullName = name
		if off := strings.Index(run, name); off >= 0 {
			p1End = loc[0] + off + len(name)
		} else {
			p1End = loc[1]
		}
		break
	}
	if p1End < 0 {
		return pair, nil
	}

	rest := text[p1End:]
	name, err := r.firstOrganization(idx, rest)
	if err != nil {
		return pair, err
	}
	if name == "" {
		return pair, nil
	}
	pair.Party2.FullName = name

	p2Start, p2End := -1, -1
	if needle := strings.Trim(name, "."); needle != "" {
		if off := strings.Index(rest, needle); off >= 0 {
			p2Start = p1End + off
			p2End = p2Start + len(needle)
		}
	}

	switch len(keys) {
	case 0:
		pair.Party1.Role = models.RoleEither
		pair.Party2.Role = models.RoleEither
	case 1:
		k := keys[0]
		switch {
		case p2Start >= 0 && k.End <= p2Start:
			classify(&pair.Party1, k.Text, DiscloserKeywords, models.RoleDiscloser)
		case p2End >= 0 && k.Start >= p2End:
			classify(&pair.Party2, k.Text, ReceivingKeywords, models.RoleDisclosee)
		}
	case 2:
		classify(&pair.Party1, keys[0].Text, DiscloserKeywords, models.RoleDiscloser)
		classify(&pair.Party2, keys[1].Text, ReceivingKeywords, models.RoleDisclosee)
	}
	return pair, nil
}
