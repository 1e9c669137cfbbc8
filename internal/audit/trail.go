// Package audit maintains append-only decision trails with multi-factor
// confidence scoring. Tracking faults are logged and swallowed; they must
// never affect the user-visible response.
package audit

import (
	"time"

	"github.com/execboard/boardroom/internal/domain"
)

// StepType classifies one reasoning step.
type StepType string

const (
	StepAnalysis   StepType = "analysis"
	StepSynthesis  StepType = "synthesis"
	StepConclusion StepType = "conclusion"
	StepEvidence   StepType = "evidence"
	StepAssumption StepType = "assumption"
)

// Outcome is the recorded business result of a decision, attached after the
// fact.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePending Outcome = "pending"
)

// ReasoningStep is one atomic unit in a trail. Steps are append-only; the
// Number sequence is strictly increasing with no gaps.
type ReasoningStep struct {
	Number      int                   `json:"number"`
	Type        StepType              `json:"type"`
	Description string                `json:"description"`
	Evidence    []domain.EvidenceItem `json:"evidence,omitempty"`
	Confidence  float64               `json:"confidence"`
	Processing  time.Duration         `json:"processing"`
	CreatedAt   time.Time             `json:"created_at"`
}

// ContextInfo describes what supporting material was in play when tracking
// started.
type ContextInfo struct {
	DocumentCount int  `json:"document_count"`
	MarketSignals int  `json:"market_signals"`
	MemoryHits    int  `json:"memory_hits"`
	Collaboration bool `json:"collaboration"`
}

// Trail is the complete explainability record for one agent's decision
// within a session. Created at tracking start, mutated by appended steps,
// finalized exactly once (idempotently) by completion; read-mostly after
// that, though outcome and feedback may still be appended.
type Trail struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"session_id"`
	Role       domain.Role     `json:"role"`
	Query      string          `json:"query"`
	Context    ContextInfo     `json:"context"`
	Decision   string          `json:"decision"`
	Confidence float64         `json:"confidence"`
	Steps      []ReasoningStep `json:"steps"`

	EvidenceCount   int           `json:"evidence_count"`
	TotalProcessing time.Duration `json:"total_processing"`

	Outcome  Outcome  `json:"outcome,omitempty"`
	Impact   string   `json:"impact,omitempty"`
	Feedback []string `json:"feedback,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// allEvidence flattens the evidence cited across all steps.
func (t *Trail) allEvidence() []domain.EvidenceItem {
	var items []domain.EvidenceItem
	for _, step := range t.Steps {
		items = append(items, step.Evidence...)
	}
	return items
}

// clone returns a deep-enough copy so callers cannot mutate recorder state.
func (t *Trail) clone() *Trail {
	cp := *t
	cp.Steps = make([]ReasoningStep, len(t.Steps))
	copy(cp.Steps, t.Steps)
	cp.Feedback = append([]string(nil), t.Feedback...)
	return &cp
}
