package remoteapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"emojigen/internal/core"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWithHTTPClient(Config{
		Name:    "test-api",
		BaseURL: srv.URL,
		APIKey:  "secret",
	}, srv.Client())
}

func TestGenerate(t *testing.T) {
	t.Run("ParsesCandidates", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/patterns/generate" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer secret" {
				t.Errorf("missing auth header, got %q", got)
			}
			var req core.GenerationRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("request body not decodable: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"candidates":[
				{"name":"ocean waves","emojis":["🌊","🐚","🐬"],"confidence":0.92},
				{"name":"tide pool","emojis":["🦀","🐚"],"confidence":0.8}
			]}`))
		})

		resp, err := svc.Generate(context.Background(), &core.GenerationRequest{Theme: "ocean"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Candidates) != 2 {
			t.Fatalf("expected 2 candidates, got %d", len(resp.Candidates))
		}
		first := resp.Candidates[0]
		if first.Name != "ocean waves" || first.Confidence != 0.92 || len(first.Emojis) != 3 {
			t.Errorf("first candidate parsed wrong: %+v", first)
		}
	})

	t.Run("SkipsEmptyCandidates", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[{"name":"empty","emojis":[]},{"name":"ok","emojis":["✨"],"confidence":0.7}]}`))
		})

		resp, err := svc.Generate(context.Background(), &core.GenerationRequest{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Candidates) != 1 || resp.Candidates[0].Name != "ok" {
			t.Errorf("empty candidate not skipped: %+v", resp.Candidates)
		}
	})

	t.Run("MalformedResponse", func(t *testing.T) {
		for name, body := range map[string]string{
			"NotJSON":      "<html>oops</html>",
			"NoCandidates": `{"result":"nope"}`,
			"AllEmpty":     `{"candidates":[{"emojis":[]}]}`,
		} {
			t.Run(name, func(t *testing.T) {
				svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
					_, _ = w.Write([]byte(body))
				})
				_, err := svc.Generate(context.Background(), &core.GenerationRequest{})
				var ge *core.GenerationError
				if !errors.As(err, &ge) || ge.Kind != core.ErrKindMalformed {
					t.Errorf("expected malformed-response error, got %v", err)
				}
			})
		}
	})
}

func TestHealthCheck(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/health" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}
			w.WriteHeader(http.StatusOK)
		})
		if err := svc.HealthCheck(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Down", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		if err := svc.HealthCheck(context.Background()); err == nil {
			t.Error("expected error from unhealthy upstream")
		}
	})
}

func TestIsAvailable(t *testing.T) {
	withKey := New(Config{Name: "a", BaseURL: "https://api.example.com", APIKey: "k"})
	if !withKey.IsAvailable(context.Background()) {
		t.Error("configured service should be available")
	}

	noKey := New(Config{Name: "b", BaseURL: "https://api.example.com"})
	if noKey.IsAvailable(context.Background()) {
		t.Error("service without an API key must not be available")
	}
}
