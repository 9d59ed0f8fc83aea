package models

// Entity labels used by the recognizers
const (
	EntityOrganization = "ORG"
	EntityPerson       = "PERSON"
)

// EntitySpan is one named entity found in a piece of text. Start and End
// are byte offsets into the text that was recognized; back ends that cannot
// report offsets locate the text themselves.
type EntitySpan struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}
