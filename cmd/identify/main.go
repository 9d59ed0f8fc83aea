package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"contractlens/internal/config"
	"contractlens/internal/models"
	"contractlens/internal/services"
)

type options struct {
	caseNumber int
	cleanup    bool
	scan       bool
	redact     bool
}

type output struct {
	Name         string                       `json:"name"`
	SourceType   models.DocumentSourceType    `json:"sourceType"`
	LineCount    int                          `json:"lineCount"`
	Case         int                          `json:"case"`
	Complete     bool                         `json:"complete"`
	Parties      models.PartyPair             `json:"parties"`
	Flattened    []string                     `json:"flattened"`
	PersonalData []models.PersonalDataFinding `json:"personalData,omitempty"`
	RedactedText string                       `json:"redactedText,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (default $CONTRACTLENS_CONFIG)")
	caseNumber := flag.Int("case", 0, "Run a single case 1-8 instead of the cascade (0 = cascade)")
	cleanup := flag.Bool("cleanup", false, "Normalize lists, tables and markup before extracting lines")
	scan := flag.Bool("scan", false, "Report personal data found in the document")
	redact := flag.Bool("redact", false, "Include the document text with personal data redacted (implies -scan)")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("Usage: go run ./cmd/identify [-case n] [-cleanup] [-scan] [-redact] <file|->")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger := cfg.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	name := flag.Arg(0)
	var data []byte
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
		name = "stdin.txt"
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		log.Fatalf("Failed to read document: %v", err)
	}

	recognizer, closeRecognizer, err := cfg.NewRecognizer(ctx, logger)
	if err != nil {
		log.Fatalf("Failed to create entity recognizer: %v", err)
	}
	defer closeRecognizer()

	identifier := services.NewPartyIdentifier(recognizer, services.WithLogger(logger))
	opts := options{
		caseNumber: *caseNumber,
		cleanup:    *cleanup || cfg.Cleanup,
		scan:       *scan || *redact,
		redact:     *redact,
	}

	out, err := identify(ctx, identifier, recognizer, opts, filepath.Base(name), data)
	if err != nil {
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
}

func identify(
	ctx context.Context,
	identifier *services.PartyIdentifier,
	recognizer services.EntityRecognizer,
	opts options,
	name string,
	data []byte,
) (*output, error) {
	text, sourceType, err := services.ExtractText(name, data)
	if err != nil {
		return nil, err
	}

	analyzed := text
	if opts.cleanup {
		analyzed = services.CleanupDocument(analyzed)
	}
	lines := services.ExtractLines(analyzed)

	out := &output{Name: name, SourceType: sourceType, LineCount: len(lines)}
	if opts.caseNumber != 0 {
		parties, err := identifier.RunCase(ctx, opts.caseNumber, lines)
		if err != nil {
			return nil, fmt.Errorf("failed to run case %d: %w", opts.caseNumber, err)
		}
		out.Case = opts.caseNumber
		out.Parties = parties
		out.Complete = parties.Complete()
	} else {
		result, err := identifier.Identify(ctx, lines)
		if err != nil {
			return nil, fmt.Errorf("failed to identify parties: %w", err)
		}
		out.Case = result.Case
		out.Parties = result.Parties
		out.Complete = result.Complete
	}
	out.Flattened = out.Parties.Flatten()

	if opts.scan {
		findings, err := services.ScanPersonalData(ctx, text, recognizer)
		if err != nil {
			return nil, err
		}
		out.PersonalData = findings
		if opts.redact {
			out.RedactedText = services.Redact(text, findings)
		}
	}
	return out, nil
}
