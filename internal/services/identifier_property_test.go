package services

import (
	"context"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// documentLineGen draws lines that trigger the various heuristics, so random
// documents exercise every branch of the cascade.
func documentLineGen() gopter.Gen {
	return gen.OneConstOf(
		"Acme Corp (the Discloser)",
		"Beta LLC (the Recipient)",
		`Gamma Ltd (the "Company")`,
		"Acme Corp ABN 12 345 678 901 (Acme)",
		"This Agreement is made between Acme Corp and Beta LLC.",
		"between Acme Corp (the Discloser) and Beta LLC (the Recipient)",
		"first party",
		"Second Party: Beta LLC",
		"To:",
		"I, John Smith, agree",
		"Parties:",
		"the parties identified below",
		"and",
		"(",
		"()",
		"ACN",
	)
}

func TestIdentifyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	rec := &fakeRecognizer{
		orgs:    []string{"Acme Corp", "Beta LLC", "Gamma Ltd"},
		persons: []string{"John Smith"},
	}
	id := newTestIdentifier(rec)
	ctx := context.Background()

	properties.Property("identify is idempotent", prop.ForAll(
		func(lines []string) bool {
			a, errA := id.Identify(ctx, lines)
			b, errB := id.Identify(ctx, lines)
			return errA == nil && errB == nil && a == b
		},
		gen.SliceOf(documentLineGen()),
	))

	properties.Property("every case flattens to at most four fields", prop.ForAll(
		func(lines []string) bool {
			for n := 1; n <= 8; n++ {
				pair, err := id.RunCase(ctx, n, lines)
				if err != nil || len(pair.Flatten()) > 4 {
					return false
				}
				if pair.Complete() != (len(pair.Flatten()) == 4) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(documentLineGen()),
	))

	properties.Property("complete results come from the first complete case", prop.ForAll(
		func(lines []string) bool {
			got, err := id.Identify(ctx, lines)
			if err != nil {
				return false
			}
			for _, n := range CascadeCases {
				pair, _ := id.RunCase(ctx, n, lines)
				if pair.Complete() {
					return got.Complete && got.Case == n && got.Parties == pair
				}
			}
			return !got.Complete && got.Case == 7
		},
		gen.SliceOf(documentLineGen()),
	))

	properties.TestingRun(t)
}

func TestDefinedTermProperties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("defined term never carries ABN or ACN", prop.ForAll(
		func(parts []string) bool {
			term := DefinedTerm(strings.Join(parts, " "))
			return !strings.Contains(term, "ABN") && !strings.Contains(term, "ACN")
		},
		gen.SliceOf(gen.OneGenOf(
			gen.AlphaString(),
			gen.OneConstOf("(", ")", "(ABN 12 345)", "(ACN 123)", "(the Discloser)", "(xABNx)", "ABN", "(ACN)"),
		)),
	))

	properties.TestingRun(t)
}

func TestExtractLinesProperties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("no-op text round-trips to its non-blank lines", prop.ForAll(
		func(words []string) bool {
			var want []string
			for _, w := range words {
				if w != "" {
					want = append(want, w)
				}
			}
			got := ExtractLines(strings.Join(words, "\n"))
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.OneGenOf(
			gen.Const(""),
			gen.RegexMatch(`[a-z]{1,8}( [a-z]{1,8}){0,3}`),
		)),
	))

	properties.Property("extracted lines are trimmed and non-empty", prop.ForAll(
		func(text string) bool {
			for _, line := range ExtractLines(text) {
				if line == "" || line != strings.TrimSpace(line) || strings.Contains(line, "  ") {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
