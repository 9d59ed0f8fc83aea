package models

// Role labels assigned to a party. Case 8 may also assign the literal
// parenthesized keyword text, so Role is not restricted to these values.
const (
	RoleDiscloser   = "Discloser"
	RoleDisclosee   = "Disclosee"
	RoleEither      = "Discloser/Disclosee"
	RoleDisclosuree = "Disclosuree" // person-oriented case only
)

// Party is one contracting entity as inferred from text.
// Empty strings mean "not extracted".
type Party struct {
	FullName  string `json:"fullName"`
	ShortName string `json:"shortName"`
	Role      string `json:"role"`
}

// PartyPair holds the two contracting parties. Party1 is whichever match
// a heuristic fills first; the slots are not ordered by role.
type PartyPair struct {
	Party1 Party `json:"party1"`
	Party2 Party `json:"party2"`
}

// Flatten returns the non-empty values of party1.full_name, party1.role,
// party2.full_name and party2.role, in that order.
func (p PartyPair) Flatten() []string {
	out := make([]string, 0, 4)
	for _, v := range []string{p.Party1.FullName, p.Party1.Role, p.Party2.FullName, p.Party2.Role} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Complete reports whether both parties have a full name and a role.
// Short names are never required.
func (p PartyPair) Complete() bool {
	return len(p.Flatten()) == 4
}

// IsZero reports whether nothing at all was extracted.
func (p PartyPair) IsZero() bool {
	return p == PartyPair{}
}
