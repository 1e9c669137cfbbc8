package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/execboard/boardroom/internal/audit"
	"github.com/execboard/boardroom/internal/config"
	"github.com/execboard/boardroom/internal/domain"
	"github.com/execboard/boardroom/internal/evidence"
	"github.com/execboard/boardroom/internal/orchestrator"
	"github.com/execboard/boardroom/internal/stream"
)

// API holds the handlers' collaborators. Gatherer may be nil when no
// evidence providers are configured.
type API struct {
	Orchestrator *orchestrator.Orchestrator
	Recorder     *audit.Recorder
	Gatherer     *evidence.Gatherer
	Session      config.SessionConfig
	Demo         bool
	Logger       *slog.Logger
}

type sessionRequest struct {
	Topic          string   `json:"topic"`
	Roles          []string `json:"roles"`
	MaxRounds      int      `json:"max_rounds"`
	AutoConclude   *bool    `json:"auto_conclude"`
	InitialContext string   `json:"context"`
	Watchlist      []string `json:"watchlist"`
	Demo           *bool    `json:"demo"`
}

// handleCreateSession runs a discussion and streams its lifecycle events as
// server-sent events, one JSON event per data line. Client disconnect stops
// the discussion after the in-flight agent call.
func (a *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("malformed request body"))
		return
	}

	roles := make([]domain.Role, 0, len(req.Roles))
	for _, role := range req.Roles {
		roles = append(roles, domain.Role(role))
	}
	autoConclude := a.Session.AutoConclude
	if req.AutoConclude != nil {
		autoConclude = *req.AutoConclude
	}
	maxRounds := req.MaxRounds
	if maxRounds == 0 {
		maxRounds = a.Session.MaxRounds
	}
	demo := a.Demo
	if req.Demo != nil {
		demo = *req.Demo
	}

	params := orchestrator.Params{
		Topic:          req.Topic,
		Roles:          roles,
		MaxRounds:      maxRounds,
		AutoConclude:   autoConclude,
		InitialContext: req.InitialContext,
		Demo:           demo,
	}

	// Evidence is gathered exactly once, before the first round; every
	// round sees the same bundle.
	if a.Gatherer != nil {
		params.Evidence = a.Gatherer.Gather(r.Context(), req.Topic, roles, req.Watchlist, evidence.SearchOptions{})
	}

	st := stream.New()
	errCh := make(chan error, 1)
	go func() {
		_, err := a.Orchestrator.Run(r.Context(), params, st)
		errCh <- err
	}()

	flusher, canFlush := w.(http.Flusher)
	wrote := false
	writeEvent := func(ev domain.Event) {
		if !wrote {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			wrote = true
		}
		data, err := json.Marshal(ev)
		if err != nil {
			a.Logger.Error("event marshal failed", slog.String("error", err.Error()))
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		if canFlush {
			flusher.Flush()
		}
	}

	for {
		select {
		case ev := <-st.Events():
			writeEvent(ev)
		case <-st.Done():
			// Drain events buffered before the close.
			for {
				select {
				case ev := <-st.Events():
					writeEvent(ev)
				default:
					if err := <-errCh; err != nil && !wrote {
						writeError(w, err)
					}
					return
				}
			}
		case <-r.Context().Done():
			st.Close()
			<-errCh
			return
		}
	}
}

func (a *API) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	trail, err := a.Recorder.Get(r.Context(), chi.URLParam(r, "auditID"))
	if err != nil {
		writeNotFound(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trail)
}

func (a *API) handleGetConfidence(w http.ResponseWriter, r *http.Request) {
	breakdown, err := a.Recorder.ConfidenceBreakdown(r.Context(), chi.URLParam(r, "auditID"))
	if err != nil {
		writeNotFound(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (a *API) handleRecordOutcome(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Outcome string `json:"outcome"`
		Impact  string `json:"impact"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("malformed request body"))
		return
	}
	outcome := audit.Outcome(req.Outcome)
	if outcome != audit.OutcomeSuccess && outcome != audit.OutcomeFailure {
		writeError(w, domain.ErrInvalidRequest(`outcome must be "success" or "failure"`))
		return
	}
	if err := a.Recorder.RecordOutcome(r.Context(), chi.URLParam(r, "auditID"), outcome, req.Impact); err != nil {
		writeNotFound(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAddFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("malformed request body"))
		return
	}
	if req.Feedback == "" {
		writeError(w, domain.ErrInvalidRequest("feedback must not be empty"))
		return
	}
	if err := a.Recorder.AddFeedback(r.Context(), chi.URLParam(r, "auditID"), req.Feedback); err != nil {
		writeNotFound(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidRequest("malformed request body"))
		return
	}
	answer, err := a.Recorder.Explain(r.Context(), chi.URLParam(r, "auditID"), req.Question)
	if err != nil {
		writeNotFound(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	errType := domain.ErrorTypeInternal
	var ae *domain.AgentError
	if errors.As(err, &ae) {
		status = ae.HTTPStatusCode()
		errType = ae.Type
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"type":    string(errType),
			"message": err.Error(),
		},
	})
}

func writeNotFound(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusNotFound, map[string]interface{}{
		"error": map[string]string{
			"type":    "not_found",
			"message": err.Error(),
		},
	})
}
