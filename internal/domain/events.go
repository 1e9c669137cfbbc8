package domain

import "time"

// EventType discriminates session lifecycle events.
type EventType string

const (
	EventSessionStart    EventType = "session_start"
	EventRoundStart      EventType = "round_start"
	EventAgentStart      EventType = "agent_start"
	EventAgentResponse   EventType = "agent_response"
	EventAgentError      EventType = "agent_error"
	EventRoundComplete   EventType = "round_complete"
	EventSessionComplete EventType = "session_complete"
	EventError           EventType = "error"
)

// Event is one record in a session's ordered event stream. Every event is
// self-describing so a persistence layer can durably record it without
// re-deriving orchestrator state.
//
// Legal emission order per session:
//
//	session_start
//	{ round_start { agent_start (agent_response|agent_error) }* round_complete }+
//	session_complete
//
// with a top-level error event permitted at any point, terminating the
// stream.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`

	// Round context. Round is 1-indexed; set on all round- and role-scoped
	// events. TotalRounds carries maxRounds on round events and the number
	// of rounds actually run on session_complete.
	Round       int `json:"round,omitempty"`
	TotalRounds int `json:"total_rounds,omitempty"`

	// Role context for agent_* events. Position is the role's 1-indexed
	// slot within the round, Total the participant count.
	Role     Role `json:"role,omitempty"`
	Position int  `json:"position,omitempty"`
	Total    int  `json:"total,omitempty"`

	// agent_response payload.
	Response *AgentResponse `json:"response,omitempty"`

	// agent_error and error payload.
	ErrorType    ErrorType `json:"error_type,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`

	// session_complete payload.
	ResponseCount int              `json:"response_count,omitempty"`
	Citations     []string         `json:"citations,omitempty"`
	Consensus     *ConsensusRecord `json:"consensus,omitempty"`
}
