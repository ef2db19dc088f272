package coordinator

import "encoding/json"

// Request kinds sent to the coordination service.
const (
	KindCheckin            = "checkin"
	KindSessionJoin        = "session-join"
	KindSessionLeave       = "session-leave"
	KindParticipantInput   = "participant-input"
	KindParticipantCreated = "participant-created"
)

// Event kinds received from the coordination service.
const (
	EventRoleAssigned      = "role-assigned"
	EventEvaluationResult  = "evaluation-result"
	EventCreationConfirmed = "creation-confirmed"
)

// Frame is the wire envelope in both directions.
type Frame struct {
	Kind          string          `json:"kind"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
}

// Event is a frame received from the coordination service; the payload stays
// opaque until the router dispatches on Kind.
type Event struct {
	Kind          string          `json:"kind"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
}

// CheckinPayload announces the gateway identity after connecting.
type CheckinPayload struct {
	GatewayID string `json:"gateway_id"`
}

// SessionChange carries a participant entering or leaving a session.
type SessionChange struct {
	ParticipantID string `json:"participant_id"`
	SessionID     string `json:"session_id"`
}

// InputPayload carries a participant's solution input.
type InputPayload struct {
	ParticipantID string          `json:"participant_id"`
	SessionID     string          `json:"session_id"`
	Input         json.RawMessage `json:"input"`
	ReceivedAtMS  int64           `json:"received_at_ms"`
}

// CreatedPayload carries a newly created participant identifier.
type CreatedPayload struct {
	ParticipantID string `json:"participant_id"`
}

// RoleAssignedEvent is the payload of a role-assigned event.
type RoleAssignedEvent struct {
	ParticipantID string `json:"participant_id"`
	SessionID     string `json:"session_id"`
	Role          string `json:"role"`
}

// EvaluationResultEvent is the payload of an evaluation-result event.
type EvaluationResultEvent struct {
	ParticipantID string          `json:"participant_id"`
	SessionID     string          `json:"session_id"`
	Correct       bool            `json:"correct"`
	ElapsedMS     int64           `json:"elapsed_ms"`
	Input         string          `json:"input"`
	Detail        json.RawMessage `json:"detail,omitempty"`
}

// CreationConfirmedEvent is the payload of a creation-confirmed event.
type CreationConfirmedEvent struct {
	ParticipantID string `json:"participant_id"`
}
