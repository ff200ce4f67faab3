package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"emojigen/internal/cache"
	"emojigen/internal/core"
	"emojigen/internal/localgen"
	"emojigen/internal/orchestrator"
	"emojigen/internal/services"
)

func newTestServer(t *testing.T, cfg *Config) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := cache.NewLocalStore(100, 1<<20)
	t.Cleanup(func() { _ = store.Close() })

	orch := orchestrator.New(orchestrator.Config{
		Registry: services.NewRegistry(),
		Tracker:  services.NewTracker(),
		Engine:   localgen.New(logger),
		Cache:    store,
		Logger:   logger,
	})
	return New(orch, cfg)
}

func TestGenerateEndpoint(t *testing.T) {
	t.Run("FullRequest", func(t *testing.T) {
		srv := newTestServer(t, nil)
		body := `{"request":{"theme":"ocean","size":5},"context":{"preference":"local-first"}}`
		req := httptest.NewRequest(http.MethodPost, "/v1/patterns/generate", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var res core.FallbackResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("response not a FallbackResult: %v", err)
		}
		if res.Quality < core.QualityFloor {
			t.Errorf("quality %v below the guaranteed floor", res.Quality)
		}
		if len(res.Pattern.Emojis) != 5 {
			t.Errorf("requested size not honored: %v", res.Pattern.Emojis)
		}
		if res.Source == "" {
			t.Error("result must name its source")
		}
	})

	t.Run("EmptyBodyStillResolves", func(t *testing.T) {
		srv := newTestServer(t, nil)
		req := httptest.NewRequest(http.MethodPost, "/v1/patterns/generate", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var res core.FallbackResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("response not a FallbackResult: %v", err)
		}
		if len(res.Pattern.Emojis) == 0 {
			t.Error("empty request must still produce a pattern")
		}
	})

	t.Run("MalformedBody", func(t *testing.T) {
		srv := newTestServer(t, nil)
		req := httptest.NewRequest(http.MethodPost, "/v1/patterns/generate", strings.NewReader(`{"request":`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for malformed JSON, got %d", rec.Code)
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var health orchestrator.SystemHealth
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("response not a SystemHealth: %v", err)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &Config{MetricsEnabled: true})

	// Resolve one request so the counters exist with real values.
	gen := httptest.NewRequest(http.MethodPost, "/v1/patterns/generate", strings.NewReader(`{}`))
	gen.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(httptest.NewRecorder(), gen)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "emojigen_requests_total") {
		t.Error("metrics exposition missing orchestrator counters")
	}
}

func TestAuth(t *testing.T) {
	cfg := &Config{MasterKey: "sekrit", MetricsEnabled: true}

	t.Run("RejectsMissingToken", func(t *testing.T) {
		srv := newTestServer(t, cfg)
		req := httptest.NewRequest(http.MethodPost, "/v1/patterns/generate", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("RejectsWrongKey", func(t *testing.T) {
		srv := newTestServer(t, cfg)
		req := httptest.NewRequest(http.MethodPost, "/v1/patterns/generate", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("AcceptsMasterKey", func(t *testing.T) {
		srv := newTestServer(t, cfg)
		req := httptest.NewRequest(http.MethodPost, "/v1/patterns/generate", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer sekrit")
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("HealthStaysPublic", func(t *testing.T) {
		srv := newTestServer(t, cfg)
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("health must skip auth, got %d", rec.Code)
		}
	})

	t.Run("MetricsStaysPublic", func(t *testing.T) {
		srv := newTestServer(t, cfg)
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("metrics must skip auth, got %d", rec.Code)
		}
	})
}
