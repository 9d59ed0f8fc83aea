package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"contractlens/internal/models"
)

const maxResponseSize = 2 * 1024 * 1024 // 2MB

// ErrTransient marks failures worth retrying: rate limiting, server errors
// and network problems.
var ErrTransient = errors.New("transient entity recognition failure")

// RemoteConfig configures a Remote recognizer
type RemoteConfig struct {
	Endpoint  string
	APIKey    string
	Timeout   time.Duration
	RateLimit rate.Limit
	Burst     int
	// HTTPClient overrides the default client; Timeout is ignored when set
	HTTPClient *http.Client
}

// Remote calls an HTTP entity recognition service:
//
//	POST {endpoint}/entities {"text": "...", "labels": ["ORG"]}
//	200 {"entities": [{"text": "...", "label": "ORG", "start": 0, "end": 9}]}
type Remote struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type entityRequest struct {
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

type entityResponse struct {
	Entities []models.EntitySpan `json:"entities"`
	Error    string              `json:"error,omitempty"`
}

// NewRemote creates a new Remote recognizer
func NewRemote(config RemoteConfig) (*Remote, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("remote recognizer endpoint is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = rate.Every(100 * time.Millisecond)
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &Remote{
		endpoint:   strings.TrimRight(config.Endpoint, "/"),
		apiKey:     config.APIKey,
		httpClient: client,
		limiter:    rate.NewLimiter(config.RateLimit, config.Burst),
	}, nil
}

// Organizations returns ORG spans; GPE spans are reported as ORG.
func (r *Remote) Organizations(ctx context.Context, text string) ([]models.EntitySpan, error) {
	spans, err := r.recognize(ctx, text, []string{"ORG", "GPE"})
	if err != nil {
		return nil, err
	}
	for i := range spans {
		spans[i].Label = models.EntityOrganization
	}
	return spans, nil
}

// Persons returns PERSON spans.
func (r *Remote) Persons(ctx context.Context, text string) ([]models.EntitySpan, error) {
	return r.recognize(ctx, text, []string{models.EntityPerson})
}

func (r *Remote) recognize(ctx context.Context, text string, labels []string) ([]models.EntitySpan, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	body, err := json.Marshal(entityRequest{Text: text, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/entities", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: request failed: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrTransient, err)
	}
	if len(payload) > maxResponseSize {
		return nil, fmt.Errorf("response body exceeds maximum size of %d bytes", maxResponseSize)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	}

	var decoded entityResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recognizer returned status %d: %s", resp.StatusCode, decoded.Error)
	}

	spans := decoded.Entities[:0]
	for _, s := range decoded.Entities {
		if s.Text == "" {
			continue
		}
		if s.Start < 0 || s.End > len(text) || s.Start > s.End {
			return nil, fmt.Errorf("recognizer returned span %q with invalid offsets %d-%d", s.Text, s.Start, s.End)
		}
		spans = append(spans, s)
	}
	return spans, nil
}
