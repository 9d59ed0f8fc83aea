package ner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"contractlens/internal/models"
)

func newTestRemote(t *testing.T, handler http.HandlerFunc) (*Remote, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	remote, err := NewRemote(RemoteConfig{
		Endpoint:  server.URL + "/",
		APIKey:    "secret",
		Timeout:   2 * time.Second,
		RateLimit: rate.Inf,
	})
	require.NoError(t, err)
	return remote, &calls
}

func TestRemote_Organizations(t *testing.T) {
	remote, calls := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/entities", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req entityRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Acme Corp and Sydney", req.Text)
		assert.Equal(t, []string{"ORG", "GPE"}, req.Labels)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entityResponse{Entities: []models.EntitySpan{
			{Text: "Acme Corp", Label: "ORG", Start: 0, End: 9},
			{Text: "Sydney", Label: "GPE", Start: 14, End: 20},
		}})
	})

	spans, err := remote.Organizations(context.Background(), "Acme Corp and Sydney")
	require.NoError(t, err)
	assert.Equal(t, []models.EntitySpan{
		{Text: "Acme Corp", Label: models.EntityOrganization, Start: 0, End: 9},
		{Text: "Sydney", Label: models.EntityOrganization, Start: 14, End: 20},
	}, spans)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestRemote_Persons(t *testing.T) {
	remote, _ := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		var req entityRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"PERSON"}, req.Labels)
		w.Write([]byte(`{"entities":[{"text":"Jane Doe","label":"PERSON","start":3,"end":11}]}`))
	})

	spans, err := remote.Persons(context.Background(), "I, Jane Doe, agree")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "Jane Doe", spans[0].Text)
}

func TestRemote_TransientStatuses(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		remote, _ := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := remote.Organizations(context.Background(), "Acme Corp")
		assert.ErrorIs(t, err, ErrTransient, "status %d", status)
	}
}

func TestRemote_ClientError(t *testing.T) {
	remote, _ := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"text too long"}`))
	})

	_, err := remote.Organizations(context.Background(), "Acme Corp")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTransient)
	assert.Contains(t, err.Error(), "text too long")
}

func TestRemote_InvalidOffsets(t *testing.T) {
	remote, _ := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entities":[{"text":"Acme","label":"ORG","start":2,"end":99}]}`))
	})

	_, err := remote.Organizations(context.Background(), "Acme")
	assert.ErrorContains(t, err, "invalid offsets")
}

func TestRemote_MalformedBody(t *testing.T) {
	remote, _ := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := remote.Organizations(context.Background(), "Acme")
	assert.ErrorContains(t, err, "failed to decode response")
}

func TestRemote_BlankTextSkipsRequest(t *testing.T) {
	remote, calls := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})

	spans, err := remote.Organizations(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, spans)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestRemote_CanceledContext(t *testing.T) {
	remote, _ := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entities":[]}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := remote.Organizations(ctx, "Acme")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRemote_RequiresEndpoint(t *testing.T) {
	_, err := NewRemote(RemoteConfig{})
	assert.Error(t, err)
}
