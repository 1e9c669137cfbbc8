// Package domain holds the core types shared by the deliberation engine:
// sessions, rounds, agent responses, evidence, lifecycle events, and the
// canonical error taxonomy.
package domain

import (
	"time"
)

// Role identifies one of the executive personas that can participate in a
// discussion session.
type Role string

const (
	RoleCEO Role = "ceo"
	RoleCFO Role = "cfo"
	RoleCTO Role = "cto"
	RoleHR  Role = "hr"

	// RoleFacilitator is reserved for the consensus synthesis call; it is
	// never a session participant.
	RoleFacilitator Role = "facilitator"
)

// KnownRoles lists the roles a caller may include in a session, in canonical
// participant order.
var KnownRoles = []Role{RoleCEO, RoleCFO, RoleCTO, RoleHR}

// IsParticipantRole reports whether r may be named in a session's role list.
func IsParticipantRole(r Role) bool {
	for _, known := range KnownRoles {
		if r == known {
			return true
		}
	}
	return false
}

// SessionStatus is the lifecycle state of a discussion session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionConcluded SessionStatus = "concluded"
	SessionEscalated SessionStatus = "escalated"
)

// Session identifies one orchestration run. It is owned and mutated
// exclusively by the orchestrator for its lifetime and becomes immutable
// once concluded.
type Session struct {
	ID           string        `json:"id"`
	Topic        string        `json:"topic"`
	Roles        []Role        `json:"roles"`
	MaxRounds    int           `json:"max_rounds"`
	AutoConclude bool          `json:"auto_conclude"`
	Status       SessionStatus `json:"status"`
	CurrentRound int           `json:"current_round"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Round is one pass through all participant roles. It is fully formed only
// after every role has produced a response or recorded a failure; the
// orchestrator never exposes a partial round.
type Round struct {
	Number    int              `json:"number"` // 1-indexed
	Responses []*AgentResponse `json:"responses"`
}

// AgentResponse is the output of one role in one round. It is immutable once
// created and is referenced, never copied, by the round, the audit recorder,
// and the consensus synthesizer.
type AgentResponse struct {
	Role       Role               `json:"role"`
	Text       string             `json:"text"`
	Model      string             `json:"model"`
	TokenCount int                `json:"token_count"`
	CreatedAt  time.Time          `json:"created_at"`
	Metadata   *ResponseMetadata  `json:"metadata,omitempty"`
}

// EvidenceType tags the origin of an evidence item.
type EvidenceType string

const (
	EvidenceDocument      EvidenceType = "document"
	EvidenceMarketData    EvidenceType = "market_data"
	EvidenceMemory        EvidenceType = "memory"
	EvidenceCollaboration EvidenceType = "collaboration"
	EvidenceExternal      EvidenceType = "external"
)

// EvidenceItem is a unit of supporting material. Evidence is fetched once
// per session and shared read-only across all rounds and roles.
type EvidenceItem struct {
	Type        EvidenceType `json:"type"`
	Source      string       `json:"source"`
	Content     string       `json:"content"`
	Relevance   float64      `json:"relevance"`   // [0,1]
	Reliability float64      `json:"reliability"` // [0,1]
	Citation    string       `json:"citation"`
}

// ReliabilityPrior returns the fixed per-type reliability prior used by
// confidence scoring.
func (t EvidenceType) ReliabilityPrior() float64 {
	switch t {
	case EvidenceDocument:
		return 0.9
	case EvidenceMarketData, EvidenceCollaboration:
		return 0.8
	case EvidenceMemory:
		return 0.7
	default:
		return 0.6
	}
}

// ConfidenceLabel is the qualitative confidence attached to a consensus
// recommendation.
type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "High"
	ConfidenceMedium ConfidenceLabel = "Medium"
	ConfidenceLow    ConfidenceLabel = "Low"
)

// ConsensusRecord is the synthesizer's output. Created once at the end of a
// session; immutable thereafter.
type ConsensusRecord struct {
	Recommendation string          `json:"recommendation"`
	Confidence     ConfidenceLabel `json:"confidence"`
	AgentCount     int             `json:"agent_count"`
	// SourceCounts maps each referenced evidence source to the number of
	// contributing responses that cited it.
	SourceCounts map[string]int `json:"source_counts,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
