// Package orchestrator drives a bounded number of discussion rounds across
// a fixed set of executive roles, accumulating shared context, emitting
// ordered lifecycle events, and deciding when the discussion has converged.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/execboard/boardroom/internal/audit"
	"github.com/execboard/boardroom/internal/domain"
	"github.com/execboard/boardroom/internal/evidence"
	"github.com/execboard/boardroom/internal/gateway"
	"github.com/execboard/boardroom/internal/stream"
)

const (
	// Round limits. Caller-supplied values are clamped into this range.
	minRounds = 1
	maxRounds = 5

	// maxTopicLength rejects oversized queries before orchestration.
	maxTopicLength = 4000

	// roundTwoInstruction steers later rounds toward convergence.
	roundTwoInstruction = "Build upon the discussion so far and move toward a concrete conclusion."
)

// Responder is one role's generation call; satisfied by *gateway.Gateway.
type Responder interface {
	Respond(ctx context.Context, req gateway.Request) (*domain.AgentResponse, error)
}

// Synthesizer merges responses into a consensus record; satisfied by
// *consensus.Synthesizer.
type Synthesizer interface {
	Synthesize(ctx context.Context, topic string, responses []*domain.AgentResponse, bundle *evidence.Bundle, demo bool) (*domain.ConsensusRecord, error)
}

// Tracker records decision audit trails; satisfied by *audit.Recorder.
type Tracker interface {
	StartTracking(ctx context.Context, sessionID string, role domain.Role, query string, info audit.ContextInfo) string
	AddStep(ctx context.Context, auditID string, stepType audit.StepType, description string, ev []domain.EvidenceItem, confidence float64, processing time.Duration)
	CompleteTracking(ctx context.Context, auditID, decision string, confidence float64) *audit.Trail
}

// Params describe one session run. Evidence is fetched by the caller once
// and passed in; the orchestrator never refetches it.
type Params struct {
	SessionID      string
	Topic          string
	Roles          []domain.Role
	MaxRounds      int
	AutoConclude   bool
	InitialContext string
	Evidence       *evidence.Bundle
	Demo           bool
}

// Result is everything a session produced, returned to the caller after the
// stream has delivered the same information as events.
type Result struct {
	Session   *domain.Session
	Rounds    []domain.Round
	Responses []*domain.AgentResponse
	Consensus *domain.ConsensusRecord
	AuditIDs  map[domain.Role][]string
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithHeuristic replaces the conclusion heuristic.
func WithHeuristic(h ConclusionHeuristic) Option {
	return func(o *Orchestrator) { o.heuristic = h }
}

// WithSynthesizer attaches a consensus synthesizer.
func WithSynthesizer(s Synthesizer) Option {
	return func(o *Orchestrator) { o.synthesizer = s }
}

// WithTracker attaches a decision audit tracker.
func WithTracker(t Tracker) Option {
	return func(o *Orchestrator) { o.tracker = t }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// Orchestrator coordinates sessions. Stateless across sessions; safe for
// concurrent Run calls.
type Orchestrator struct {
	responder   Responder
	synthesizer Synthesizer
	tracker     Tracker
	heuristic   ConclusionHeuristic
	logger      *slog.Logger
}

// New creates an Orchestrator around the given responder.
func New(responder Responder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		responder: responder,
		heuristic: NewKeywordHeuristic(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// validate rejects malformed parameters before any orchestration begins.
func validate(p *Params) error {
	if p.Topic == "" {
		return domain.ErrInvalidRequest("topic must not be empty")
	}
	if len(p.Topic) > maxTopicLength {
		return domain.ErrInvalidRequest(fmt.Sprintf("topic exceeds %d characters", maxTopicLength))
	}
	if len(p.Roles) == 0 {
		return domain.ErrInvalidRequest("at least one participant role is required")
	}
	seen := make(map[domain.Role]bool, len(p.Roles))
	for _, role := range p.Roles {
		if !domain.IsParticipantRole(role) {
			return domain.ErrInvalidRequest(fmt.Sprintf("unknown role %q", role))
		}
		if seen[role] {
			return domain.ErrInvalidRequest(fmt.Sprintf("duplicate role %q", role))
		}
		seen[role] = true
	}
	if p.MaxRounds < minRounds {
		p.MaxRounds = minRounds
	}
	if p.MaxRounds > maxRounds {
		p.MaxRounds = maxRounds
	}
	return nil
}

// runState is the explicit progression of one session, making the
// per-round, per-role sequencing and its failure/continue semantics
// testable without a live engine.
type runState int

const (
	stateRoundStart runState = iota
	stateAwaitRole
	stateRoundComplete
	stateCheckConclusion
	stateDone
)

// run carries the mutable state of one session through the state machine.
type run struct {
	o       *Orchestrator
	st      *stream.Stream
	params  Params
	session *domain.Session

	state   runState
	roleIdx int

	current   *domain.Round
	rounds    []domain.Round
	responses []*domain.AgentResponse
	ctxBuf    *contextBuffer
	auditIDs  map[domain.Role][]string
}

// Run executes a full session, emitting events to st and closing it when
// done. Validation failures close the stream and are returned before any
// event is emitted, so a consumer waiting on Done is always released. Agent
// failures never become a Run error; an unexpected orchestration fault is
// emitted as a top-level error event and returned, with the session left in
// whatever partial state it reached.
func (o *Orchestrator) Run(ctx context.Context, p Params, st *stream.Stream) (result *Result, err error) {
	if err := validate(&p); err != nil {
		st.Close()
		return nil, err
	}

	if p.SessionID == "" {
		p.SessionID = "sess_" + uuid.New().String()
	}

	tracer := otel.Tracer("boardroom/orchestrator")
	ctx, span := tracer.Start(ctx, "session.run")
	span.SetAttributes(
		attribute.String("session.id", p.SessionID),
		attribute.Int("session.max_rounds", p.MaxRounds),
		attribute.Int("session.roles", len(p.Roles)),
	)
	defer span.End()

	defer st.Close()
	defer func() {
		if r := recover(); r != nil {
			fault := domain.ErrInternal(fmt.Sprintf("orchestration fault: %v", r))
			o.logger.Error("orchestration loop fault",
				slog.String("session_id", p.SessionID),
				slog.String("error", fault.Error()))
			st.Emit(domain.Event{
				Type:         domain.EventError,
				SessionID:    p.SessionID,
				Timestamp:    time.Now(),
				ErrorType:    fault.Type,
				ErrorMessage: fault.Message,
			})
			result, err = nil, fault
		}
	}()

	r := &run{
		o:      o,
		st:     st,
		params: p,
		session: &domain.Session{
			ID:           p.SessionID,
			Topic:        p.Topic,
			Roles:        p.Roles,
			MaxRounds:    p.MaxRounds,
			AutoConclude: p.AutoConclude,
			Status:       domain.SessionActive,
			CreatedAt:    time.Now(),
		},
		ctxBuf:   newContextBuffer(p.InitialContext),
		auditIDs: make(map[domain.Role][]string),
	}

	st.Emit(domain.Event{
		Type:        domain.EventSessionStart,
		SessionID:   p.SessionID,
		Timestamp:   time.Now(),
		TotalRounds: p.MaxRounds,
		Total:       len(p.Roles),
	})

	for r.state != stateDone {
		switch r.state {
		case stateRoundStart:
			r.startRound()
		case stateAwaitRole:
			r.awaitRole(ctx)
		case stateRoundComplete:
			r.completeRound()
		case stateCheckConclusion:
			r.checkConclusion()
		}
	}

	return r.finish(ctx), nil
}

// startRound opens the next round, or ends the session when the budget is
// exhausted or the consumer has gone away.
func (r *run) startRound() {
	if r.session.CurrentRound >= r.params.MaxRounds || r.st.Closed() {
		r.state = stateDone
		return
	}

	r.session.CurrentRound++
	r.current = &domain.Round{Number: r.session.CurrentRound}
	r.roleIdx = 0

	r.st.Emit(domain.Event{
		Type:        domain.EventRoundStart,
		SessionID:   r.session.ID,
		Timestamp:   time.Now(),
		Round:       r.session.CurrentRound,
		TotalRounds: r.params.MaxRounds,
	})
	r.state = stateAwaitRole
}

// awaitRole runs one role's generation call and advances to the next role
// or to round completion. One role's failure never aborts the round.
func (r *run) awaitRole(ctx context.Context) {
	if r.roleIdx >= len(r.params.Roles) {
		r.state = stateRoundComplete
		return
	}
	if r.st.Closed() {
		// Consumer disconnected: stop initiating calls. The round is left
		// partial; nothing outside the orchestrator observes it.
		r.state = stateDone
		return
	}

	role := r.params.Roles[r.roleIdx]
	position := r.roleIdx + 1
	r.roleIdx++

	r.st.Emit(domain.Event{
		Type:      domain.EventAgentStart,
		SessionID: r.session.ID,
		Timestamp: time.Now(),
		Round:     r.session.CurrentRound,
		Role:      role,
		Position:  position,
		Total:     len(r.params.Roles),
	})

	started := time.Now()
	resp, err := r.o.responder.Respond(ctx, gateway.Request{
		Role:     role,
		Scenario: r.params.Topic,
		Context:  r.promptContext(),
		Evidence: r.params.Evidence,
		Demo:     r.params.Demo,
	})
	if err != nil {
		r.o.logger.Warn("agent generation failed, continuing",
			slog.String("session_id", r.session.ID),
			slog.String("role", string(role)),
			slog.Int("round", r.session.CurrentRound),
			slog.String("error", err.Error()))
		r.st.Emit(domain.Event{
			Type:         domain.EventAgentError,
			SessionID:    r.session.ID,
			Timestamp:    time.Now(),
			Round:        r.session.CurrentRound,
			Role:         role,
			Position:     position,
			Total:        len(r.params.Roles),
			ErrorType:    domain.TypeOf(err),
			ErrorMessage: err.Error(),
		})
		return
	}

	r.current.Responses = append(r.current.Responses, resp)
	r.responses = append(r.responses, resp)
	r.ctxBuf.append(fmt.Sprintf("%s (round %d): %s", role, r.session.CurrentRound, resp.Text))

	r.st.Emit(domain.Event{
		Type:      domain.EventAgentResponse,
		SessionID: r.session.ID,
		Timestamp: time.Now(),
		Round:     r.session.CurrentRound,
		Role:      role,
		Position:  position,
		Total:     len(r.params.Roles),
		Response:  resp,
	})

	r.track(ctx, role, resp, time.Since(started))
}

// promptContext assembles the discussion context for the next role: prior
// rounds plus the current round's responses so far, plus the round-aware
// instruction after round one.
func (r *run) promptContext() string {
	text := r.ctxBuf.String()
	if r.session.CurrentRound > 1 {
		if text != "" {
			text += "\n\n"
		}
		text += roundTwoInstruction
	}
	return text
}

// track records the decision audit trail for one successful response.
// Tracking faults are logged by the recorder and never surface here.
func (r *run) track(ctx context.Context, role domain.Role, resp *domain.AgentResponse, elapsed time.Duration) {
	if r.o.tracker == nil {
		return
	}

	bundle := r.params.Evidence
	info := audit.ContextInfo{Collaboration: len(r.params.Roles) > 1}
	var items []domain.EvidenceItem
	if bundle != nil {
		info.DocumentCount = len(bundle.Items)
		info.MemoryHits = len(bundle.Advice)
		if bundle.Market != nil {
			info.MarketSignals = len(bundle.Market.Indices) + len(bundle.Market.Stocks)
		}
		items = bundle.Items
	}

	confidence := 0.75
	if resp.Metadata != nil {
		confidence = resp.Metadata.ConfidenceScore()
	}

	auditID := r.o.tracker.StartTracking(ctx, r.session.ID, role, r.params.Topic, info)
	if len(items) > 0 {
		r.o.tracker.AddStep(ctx, auditID, audit.StepEvidence,
			fmt.Sprintf("consulted %d evidence items", len(items)), items, confidence, 0)
	}
	r.o.tracker.AddStep(ctx, auditID, audit.StepAnalysis,
		fmt.Sprintf("generated round %d position", r.session.CurrentRound), nil, confidence, elapsed)
	r.o.tracker.CompleteTracking(ctx, auditID, resp.Text, confidence)
	r.auditIDs[role] = append(r.auditIDs[role], auditID)
}

// completeRound seals the round. A round is only visible once every role
// has responded or failed.
func (r *run) completeRound() {
	r.rounds = append(r.rounds, *r.current)

	r.st.Emit(domain.Event{
		Type:        domain.EventRoundComplete,
		SessionID:   r.session.ID,
		Timestamp:   time.Now(),
		Round:       r.session.CurrentRound,
		TotalRounds: r.params.MaxRounds,
	})
	r.state = stateCheckConclusion
}

// checkConclusion applies the heuristic after round two onward when auto
// conclusion is on.
func (r *run) checkConclusion() {
	if r.params.AutoConclude && r.session.CurrentRound >= 2 {
		texts := make([]string, 0, len(r.current.Responses))
		for _, resp := range r.current.Responses {
			texts = append(texts, resp.Text)
		}
		if r.o.heuristic.Concluded(texts) {
			r.o.logger.Info("conclusion heuristic matched, ending discussion early",
				slog.String("session_id", r.session.ID),
				slog.Int("round", r.session.CurrentRound))
			r.state = stateDone
			return
		}
	}
	r.state = stateRoundStart
}

// finish synthesizes consensus when at least two roles succeeded, emits
// session_complete, and seals the session. A session whose agents all
// failed still completes with zero responses. A closed stream means the
// consumer is gone: no further engine calls, so synthesis is skipped too.
func (r *run) finish(ctx context.Context) *Result {
	var consensus *domain.ConsensusRecord
	if r.o.synthesizer != nil && !r.st.Closed() && r.distinctSuccessfulRoles() >= 2 {
		rec, err := r.o.synthesizer.Synthesize(ctx, r.params.Topic, r.responses, r.params.Evidence, r.params.Demo)
		if err != nil {
			r.o.logger.Warn("consensus synthesis failed, completing without consensus",
				slog.String("session_id", r.session.ID),
				slog.String("error", err.Error()))
		} else {
			consensus = rec
		}
	}

	r.session.Status = domain.SessionConcluded
	if len(r.responses) == 0 {
		// Every agent failed; the caller decides what to do with an empty
		// discussion.
		r.session.Status = domain.SessionEscalated
	}

	r.st.Emit(domain.Event{
		Type:          domain.EventSessionComplete,
		SessionID:     r.session.ID,
		Timestamp:     time.Now(),
		TotalRounds:   r.session.CurrentRound,
		ResponseCount: len(r.responses),
		Citations:     r.params.Evidence.Citations(),
		Consensus:     consensus,
	})

	return &Result{
		Session:   r.session,
		Rounds:    r.rounds,
		Responses: r.responses,
		Consensus: consensus,
		AuditIDs:  r.auditIDs,
	}
}

// distinctSuccessfulRoles counts roles with at least one successful
// response across all rounds.
func (r *run) distinctSuccessfulRoles() int {
	seen := make(map[domain.Role]bool)
	for _, resp := range r.responses {
		seen[resp.Role] = true
	}
	return len(seen)
}
