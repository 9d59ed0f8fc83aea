package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"contractlens/internal/models"
)

// CascadeCases is the order in which Identify tries the heuristics.
// Case 8 is deliberately absent; it is reachable through RunCase only.
var CascadeCases = []int{1, 2, 3, 4, 5, 6, 7}

// Identification is the outcome of running the cascade over one document.
type Identification struct {
	Parties  models.PartyPair `json:"parties"`
	Case     int              `json:"case"`
	Complete bool             `json:"complete"`
}

// PartyIdentifier finds the two contracting parties in the lines of an
// agreement. It holds no per-document state and is safe for concurrent use
// as long as its recognizer and splitter are.
type PartyIdentifier struct {
	recognizer EntityRecognizer
	splitter   SentenceSplitter
	logger     *slog.Logger
}

// Option configures a PartyIdentifier
type Option func(*PartyIdentifier)

// WithSentenceSplitter sets the splitter used by the sentence heuristic.
func WithSentenceSplitter(s SentenceSplitter) Option {
	return func(p *PartyIdentifier) { p.splitter = s }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *PartyIdentifier) { p.logger = l }
}

// NewPartyIdentifier creates a PartyIdentifier over the given recognizer.
// When no splitter is configured and the recognizer can split sentences
// itself, it is used for that too; otherwise a punctuation splitter is used.
func NewPartyIdentifier(recognizer EntityRecognizer, opts ...Option) *PartyIdentifier {
	p := &PartyIdentifier{recognizer: recognizer}
	for _, opt := range opts {
		opt(p)
	}
	if p.splitter == nil {
		if s, ok := recognizer.(SentenceSplitter); ok {
			p.splitter = s
		} else {
			p.splitter = PunctuationSplitter{}
		}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "party_identifier")
	return p
}

// IdentifyParties extracts lines from raw document text and runs the cascade.
func (p *PartyIdentifier) IdentifyParties(ctx context.Context, rawText string) (Identification, error) {
	return p.Identify(ctx, ExtractLines(rawText))
}

// Identify tries each cascade case in order and returns the first complete
// pair. When none completes, the last case's pair is returned as a best
// effort with Complete false. Only collaborator failures are errors.
func (p *PartyIdentifier) Identify(ctx context.Context, lines []string) (Identification, error) {
	var result Identification
	for _, n := range CascadeCases {
		if err := ctx.Err(); err != nil {
			return Identification{}, err
		}
		pair, err := p.RunCase(ctx, n, lines)
		if err != nil {
			return Identification{}, err
		}
		result = Identification{Parties: pair, Case: n, Complete: pair.Complete()}
		if result.Complete {
			break
		}
		p.logger.DebugContext(ctx, "case incomplete", "case", n, "fields", len(pair.Flatten()))
	}

	p.logger.InfoContext(ctx, "parties identified",
		"case", result.Case,
		"complete", result.Complete,
		"lines", len(lines),
	)
	return result, nil
}

// RunCase runs a single heuristic (1-8) over lines.
func (p *PartyIdentifier) RunCase(ctx context.Context, n int, lines []string) (models.PartyPair, error) {
	r := caseRun{ctx: ctx, id: p, n: n}
	switch n {
	case 1:
		return r.markersOnSeparateLines(lines)
	case 2:
		return r.receivingMarkerOnly(lines)
	case 3:
		return r.discloserMarkerOnly(lines)
	case 4:
		return r.firstAndSecondParty(lines)
	case 5:
		return r.addressedToIndividual(lines)
	case 6:
		return r.madeBetweenSentence(lines)
	case 7:
		return r.partiesSection(lines)
	case 8:
		return r.markersOnSameLine(lines)
	default:
		return models.PartyPair{}, fmt.Errorf("unknown case %d", n)
	}
}

// caseRun carries what one heuristic needs to call its collaborators and
// attribute their failures.
type caseRun struct {
	ctx context.Context
	id  *PartyIdentifier
	n   int
}

func (r caseRun) organizations(line int, text string) ([]models.EntitySpan, error) {
	spans, err := r.id.recognizer.Organizations(r.ctx, text)
	if err != nil {
		return nil, &ExtractionError{Case: r.n, Op: "organizations", Line: line, Err: err}
	}
	return spans, nil
}

// firstOrganization returns the text of the first ORG span in text, or "".
func (r caseRun) firstOrganization(line int, text string) (string, error) {
	spans, err := r.organizations(line, text)
	if err != nil || len(spans) == 0 {
		return "", err
	}
	return spans[0].Text, nil
}

// firstPerson returns the text of the first PERSON span in text, or "".
func (r caseRun) firstPerson(line int, text string) (string, error) {
	spans, err := r.id.recognizer.Persons(r.ctx, text)
	if err != nil {
		return "", &ExtractionError{Case: r.n, Op: "persons", Line: line, Err: err}
	}
	if len(spans) == 0 {
		return "", nil
	}
	return spans[0].Text, nil
}

func (r caseRun) sentences(line int, text string) ([]string, error) {
	sentences, err := r.id.splitter.Sentences(text)
	if err != nil {
		return nil, &ExtractionError{Case: r.n, Op: "sentences", Line: line, Err: err}
	}
	return sentences, nil
}

var sentenceBoundaryPattern = regexp.MustCompile(`[.!?]+\s+`)

// PunctuationSplitter splits on terminal punctuation followed by whitespace.
// It is the fallback when no NLP sentence segmenter is configured.
type PunctuationSplitter struct{}

func (PunctuationSplitter) Sentences(text string) ([]string, error) {
	var sentences []string
	start := 0
	for _, loc := range sentenceBoundaryPattern.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[start:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences, nil
}
