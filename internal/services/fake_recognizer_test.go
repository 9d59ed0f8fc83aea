package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"contractlens/internal/models"
)

// fakeRecognizer reports every known name that occurs in the text, in order
// of appearance. It counts calls so tests can assert which heuristics ran.
type fakeRecognizer struct {
	orgs    []string
	persons []string
	err     error

	mu          sync.Mutex
	orgCalls    int
	personCalls int
}

func (f *fakeRecognizer) Organizations(_ context.Context, text string) ([]models.EntitySpan, error) {
	f.mu.Lock()
	f.orgCalls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return findNames(text, f.orgs, models.EntityOrganization), nil
}

func (f *fakeRecognizer) Persons(_ context.Context, text string) ([]models.EntitySpan, error) {
	f.mu.Lock()
	f.personCalls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return findNames(text, f.persons, models.EntityPerson), nil
}

func (f *fakeRecognizer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orgCalls + f.personCalls
}

func findNames(text string, names []string, label string) []models.EntitySpan {
	var spans []models.EntitySpan
	for _, name := range names {
		if i := strings.Index(text, name); i >= 0 {
			spans = append(spans, models.EntitySpan{Text: name, Label: label, Start: i, End: i + len(name)})
		}
	}
	sort.SliceStable(spans, func(a, b int) bool { return spans[a].Start < spans[b].Start })
	return spans
}

type failingSplitter struct{ err error }

func (s failingSplitter) Sentences(string) ([]string, error) { return nil, s.err }
