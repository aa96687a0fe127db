package pagerduty

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// capturedRequest records what the client actually asked for.
type capturedRequest struct {
	Path   string
	Query  url.Values
	Header http.Header
}

// scriptedServer serves, per path, a fixed sequence of JSON responses: one
// per request, in order. It records every request it sees.
type scriptedServer struct {
	mu       sync.Mutex
	pages    map[string][]interface{}
	served   map[string]int
	requests []capturedRequest
}

func newScriptedServer(pages map[string][]interface{}) *scriptedServer {
	return &scriptedServer{pages: pages, served: make(map[string]int)}
}

func (s *scriptedServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.requests = append(s.requests, capturedRequest{
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
		})

		seq, ok := s.pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		i := s.served[r.URL.Path]
		if i >= len(seq) {
			t.Errorf("unexpected extra request %d to %s", i+1, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		s.served[r.URL.Path] = i + 1

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(seq[i]); err != nil {
			t.Errorf("failed to write mock response: %v", err)
		}
	}
}

func (s *scriptedServer) recorded() []capturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]capturedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// testSetup starts a mock PagerDuty API and returns a client pointed at it.
func testSetup(t *testing.T, pages map[string][]interface{}) (*Client, *scriptedServer) {
	t.Helper()

	script := newScriptedServer(pages)
	server := httptest.NewServer(script.handler(t))
	t.Cleanup(server.Close)

	client, err := NewClient("test-token", server.URL, "test-agent")
	require.NoError(t, err)
	client.SetPageDelay(0)
	client.SetLogger(slog.New(slog.DiscardHandler))

	return client, script
}

func teamsPageBody(more bool, teams ...map[string]interface{}) map[string]interface{} {
	items := make([]interface{}, 0, len(teams))
	for _, t := range teams {
		items = append(items, t)
	}
	return map[string]interface{}{"teams": items, "more": more}
}

func servicesPageBody(more bool, services ...map[string]interface{}) map[string]interface{} {
	items := make([]interface{}, 0, len(services))
	for _, s := range services {
		items = append(items, s)
	}
	return map[string]interface{}{"services": items, "more": more}
}
