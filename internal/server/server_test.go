package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/execboard/boardroom/internal/audit"
	"github.com/execboard/boardroom/internal/audit/memory"
	"github.com/execboard/boardroom/internal/config"
	"github.com/execboard/boardroom/internal/domain"
	"github.com/execboard/boardroom/internal/gateway"
	"github.com/execboard/boardroom/internal/orchestrator"
)

type stubResponder struct{}

func (stubResponder) Respond(ctx context.Context, req gateway.Request) (*domain.AgentResponse, error) {
	return &domain.AgentResponse{
		Role:      req.Role,
		Text:      "the " + string(req.Role) + " recommends proceeding",
		Model:     "stub",
		CreatedAt: time.Now(),
	}, nil
}

func newTestServer(t *testing.T) (*Server, *audit.Recorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	recorder := audit.NewRecorder(memory.New(), audit.WithLogger(logger))
	api := &API{
		Orchestrator: orchestrator.New(stubResponder{}, orchestrator.WithLogger(logger)),
		Recorder:     recorder,
		Session:      config.SessionConfig{MaxRounds: 2, AutoConclude: true},
		Logger:       logger,
	}
	return New(0, logger, api), recorder
}

func TestCreateSession_Stream(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"topic":"Should we expand to Europe?","roles":["ceo","cfo"],"max_rounds":1}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	var events []domain.Event
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev domain.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("unmarshal event line %q: %v", line, err)
		}
		events = append(events, ev)
	}
	if len(events) == 0 {
		t.Fatal("no events in stream")
	}
	if events[0].Type != domain.EventSessionStart {
		t.Errorf("first event = %s, want session_start", events[0].Type)
	}
	if last := events[len(events)-1]; last.Type != domain.EventSessionComplete {
		t.Errorf("last event = %s, want session_complete", last.Type)
	}
}

func TestCreateSession_ValidationError(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty topic", `{"topic":"","roles":["ceo"]}`},
		{"unknown role", `{"topic":"t","roles":["janitor"]}`},
		{"malformed body", `{"topic":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.Router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var resp struct {
				Error struct {
					Type string `json:"type"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal error body: %v", err)
			}
			if resp.Error.Type != "invalid_request" {
				t.Errorf("error type = %q, want invalid_request", resp.Error.Type)
			}
		})
	}
}

func TestAuditEndpoints(t *testing.T) {
	srv, recorder := newTestServer(t)
	ctx := context.Background()

	auditID := recorder.StartTracking(ctx, "sess_1", domain.RoleCEO, "expand?", audit.ContextInfo{})
	recorder.AddStep(ctx, auditID, audit.StepAnalysis, "weighed the options", nil, 0.8, 50*time.Millisecond)
	recorder.CompleteTracking(ctx, auditID, "expand carefully", 0.8)

	t.Run("get trail", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/audits/"+auditID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var trail audit.Trail
		if err := json.Unmarshal(rec.Body.Bytes(), &trail); err != nil {
			t.Fatalf("unmarshal trail: %v", err)
		}
		if trail.ID != auditID {
			t.Errorf("trail id = %q, want %q", trail.ID, auditID)
		}
		if len(trail.Steps) != 1 {
			t.Errorf("steps = %d, want 1", len(trail.Steps))
		}
	})

	t.Run("confidence", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/audits/"+auditID+"/confidence", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var b audit.Breakdown
		if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
			t.Fatalf("unmarshal breakdown: %v", err)
		}
		if b.Overall < 0 || b.Overall > 1 {
			t.Errorf("overall = %f, want within [0,1]", b.Overall)
		}
	})

	t.Run("record outcome", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/audits/"+auditID+"/outcome",
			strings.NewReader(`{"outcome":"success","impact":"entered two markets"}`))
		rec := httptest.NewRecorder()
		srv.Router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("invalid outcome value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/audits/"+auditID+"/outcome",
			strings.NewReader(`{"outcome":"shrug"}`))
		rec := httptest.NewRecorder()
		srv.Router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("feedback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/audits/"+auditID+"/feedback",
			strings.NewReader(`{"feedback":"good call"}`))
		rec := httptest.NewRecorder()
		srv.Router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
	})

	t.Run("explain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/audits/"+auditID+"/explain",
			strings.NewReader(`{"question":"what evidence did you use?"}`))
		rec := httptest.NewRecorder()
		srv.Router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp["answer"] == "" {
			t.Error("answer is empty")
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/audits/audit_missing", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestGetRequestID(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID(empty ctx) = %q, want empty", got)
	}
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID() = %q, want req-1", got)
	}
}
