package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/execboard/boardroom/internal/domain"
)

// retentionWindow is how long a trail without an outcome is kept.
const retentionWindow = 30 * 24 * time.Hour

// purgeInterval bounds how often the opportunistic purge runs.
const purgeInterval = time.Hour

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = logger }
}

// Recorder tracks decision trails. Active trails live in memory; completed
// trails and outcome updates are written through to the store. Safe for
// concurrent use by many sessions.
type Recorder struct {
	mu     sync.RWMutex
	active map[string]*Trail

	store  TrailStore
	logger *slog.Logger

	purgeMu   sync.Mutex
	lastPurge time.Time
}

// NewRecorder creates a Recorder over the given store.
func NewRecorder(store TrailStore, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		active: make(map[string]*Trail),
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartTracking creates a new empty trail and returns its audit ID. Must be
// called before any AddStep.
func (r *Recorder) StartTracking(ctx context.Context, sessionID string, role domain.Role, query string, info ContextInfo) string {
	trail := &Trail{
		ID:        "audit_" + uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Query:     query,
		Context:   info,
		Steps:     []ReasoningStep{},
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	r.active[trail.ID] = trail
	r.mu.Unlock()

	r.purgeIfDue(ctx)
	return trail.ID
}

// AddStep appends a reasoning step. Unknown audit IDs are logged and
// ignored; tracking failures never abort the surrounding response
// generation.
func (r *Recorder) AddStep(ctx context.Context, auditID string, stepType StepType, description string, ev []domain.EvidenceItem, confidence float64, processing time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	trail, ok := r.active[auditID]
	if !ok {
		r.logger.Warn("addStep for unknown audit id, ignoring",
			slog.String("audit_id", auditID))
		return
	}

	trail.Steps = append(trail.Steps, ReasoningStep{
		Number:      len(trail.Steps) + 1,
		Type:        stepType,
		Description: description,
		Evidence:    ev,
		Confidence:  clamp01(confidence),
		Processing:  processing,
		CreatedAt:   time.Now(),
	})
	trail.EvidenceCount += len(ev)
	trail.TotalProcessing += processing
}

// CompleteTracking finalizes the trail with its decision text and overall
// confidence and writes it through to the store. Calling it again overwrites
// the previous completion; retried completions must not crash the caller.
func (r *Recorder) CompleteTracking(ctx context.Context, auditID, decision string, confidence float64) *Trail {
	r.mu.Lock()
	trail, ok := r.active[auditID]
	if ok {
		trail.Decision = decision
		trail.Confidence = clamp01(confidence)
		trail.CompletedAt = time.Now()
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Warn("completeTracking for unknown audit id, ignoring",
			slog.String("audit_id", auditID))
		return nil
	}

	snapshot := r.snapshot(auditID)
	if err := r.store.Save(ctx, snapshot); err != nil {
		r.logger.Error("failed to persist audit trail",
			slog.String("audit_id", auditID),
			slog.String("error", err.Error()))
	}
	return snapshot
}

// Get returns a copy of the trail, from memory if active, otherwise from
// the store.
func (r *Recorder) Get(ctx context.Context, auditID string) (*Trail, error) {
	if t := r.snapshot(auditID); t != nil {
		return t, nil
	}
	return r.store.Get(ctx, auditID)
}

// RecordOutcome attaches the business result to a completed trail.
func (r *Recorder) RecordOutcome(ctx context.Context, auditID string, outcome Outcome, impact string) error {
	return r.update(ctx, auditID, func(trail *Trail) {
		trail.Outcome = outcome
		trail.Impact = impact
	})
}

// AddFeedback appends user feedback to a trail.
func (r *Recorder) AddFeedback(ctx context.Context, auditID, feedback string) error {
	return r.update(ctx, auditID, func(trail *Trail) {
		trail.Feedback = append(trail.Feedback, feedback)
	})
}

// update applies fn to the trail (active copy first, else stored copy) and
// writes the result through to the store.
func (r *Recorder) update(ctx context.Context, auditID string, fn func(*Trail)) error {
	r.mu.Lock()
	if trail, ok := r.active[auditID]; ok {
		fn(trail)
		snapshot := trail.clone()
		r.mu.Unlock()
		return r.store.Save(ctx, snapshot)
	}
	r.mu.Unlock()

	trail, err := r.store.Get(ctx, auditID)
	if err != nil {
		return err
	}
	fn(trail)
	return r.store.Save(ctx, trail)
}

// ConfidenceBreakdown computes the five-component decomposition for a trail.
func (r *Recorder) ConfidenceBreakdown(ctx context.Context, auditID string) (*Breakdown, error) {
	trail, err := r.Get(ctx, auditID)
	if err != nil {
		return nil, err
	}
	return computeBreakdown(trail, r.historicalAccuracy(ctx, trail.Role)), nil
}

// historicalAccuracy is the fraction of the role's past trails with outcome
// success among those with any recorded outcome. Defaults to 0.5 with no
// history. Reads tolerate concurrent appends; eventual consistency is fine.
func (r *Recorder) historicalAccuracy(ctx context.Context, role domain.Role) float64 {
	outcomes, err := r.store.OutcomesByRole(ctx, string(role))
	if err != nil {
		r.logger.Warn("historical accuracy lookup failed, using default",
			slog.String("role", string(role)),
			slog.String("error", err.Error()))
		return defaultHistoricalAccuracy
	}
	if len(outcomes) == 0 {
		return defaultHistoricalAccuracy
	}
	var successes int
	for _, o := range outcomes {
		if o == OutcomeSuccess {
			successes++
		}
	}
	return float64(successes) / float64(len(outcomes))
}

// Explain answers a natural-language question about a trail.
func (r *Recorder) Explain(ctx context.Context, auditID, question string) (string, error) {
	trail, err := r.Get(ctx, auditID)
	if err != nil {
		return "", err
	}

	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "evidence"):
		if trail.EvidenceCount == 0 {
			return "No evidence was cited in this decision.", nil
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "The decision cited %d evidence items:\n", trail.EvidenceCount)
		for _, item := range trail.allEvidence() {
			fmt.Fprintf(&sb, "- %s (%s, relevance %.2f)\n", item.Source, item.Type, item.Relevance)
		}
		return sb.String(), nil

	case strings.Contains(q, "confiden"):
		breakdown := computeBreakdown(trail, r.historicalAccuracy(ctx, trail.Role))
		var sb strings.Builder
		fmt.Fprintf(&sb, "Overall confidence is %.2f.\n", breakdown.Overall)
		if len(breakdown.PositiveFactors) > 0 {
			fmt.Fprintf(&sb, "Supporting: %s.\n", strings.Join(breakdown.PositiveFactors, ", "))
		}
		if len(breakdown.NegativeFactors) > 0 {
			fmt.Fprintf(&sb, "Weakening: %s.\n", strings.Join(breakdown.NegativeFactors, ", "))
		}
		return sb.String(), nil

	default:
		var sb strings.Builder
		fmt.Fprintf(&sb, "The %s reached this decision in %d steps", trail.Role, len(trail.Steps))
		if trail.Decision != "" {
			fmt.Fprintf(&sb, ": %s", trail.Decision)
		}
		sb.WriteString("\n")
		for _, step := range trail.Steps {
			fmt.Fprintf(&sb, "%d. [%s] %s (confidence %.2f)\n",
				step.Number, step.Type, step.Description, step.Confidence)
		}
		return sb.String(), nil
	}
}

// snapshot returns a copy of an active trail, or nil when unknown.
func (r *Recorder) snapshot(auditID string) *Trail {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if trail, ok := r.active[auditID]; ok {
		return trail.clone()
	}
	return nil
}

// purgeIfDue runs the retention purge at most once per purgeInterval.
func (r *Recorder) purgeIfDue(ctx context.Context) {
	r.purgeMu.Lock()
	due := time.Since(r.lastPurge) >= purgeInterval
	if due {
		r.lastPurge = time.Now()
	}
	r.purgeMu.Unlock()
	if !due {
		return
	}

	removed, err := r.store.Purge(ctx, time.Now().Add(-retentionWindow))
	if err != nil {
		r.logger.Warn("retention purge failed", slog.String("error", err.Error()))
		return
	}
	if removed > 0 {
		r.logger.Info("purged stale audit trails", slog.Int("removed", removed))
	}
}
