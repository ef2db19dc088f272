// Package router maps inbound client messages to coordination-service
// requests and coordination-service events to client-bound messages, using
// the lobby/hall registries to resolve destinations.
package router

import (
	"context"
	stdjson "encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/openquiz/quizgate/internal/coordinator"
	"github.com/openquiz/quizgate/internal/lifecycle"
	"github.com/openquiz/quizgate/internal/profile"
	"github.com/openquiz/quizgate/internal/registry"
	"github.com/openquiz/quizgate/internal/usercreate"
	"github.com/openquiz/quizgate/pkg/json"
	"github.com/openquiz/quizgate/pkg/metrics"
	"github.com/openquiz/quizgate/pkg/ws"
)

// Client message kinds.
const (
	MsgSolutionInput     = "solution-input"
	MsgCreateParticipant = "create-participant"
)

// Client-bound event kinds.
const (
	EvtParticipantJoined = "participant-joined"
	EvtParticipantLeft   = "participant-left"
	EvtEvaluationDetail  = "evaluation-detail"
	EvtEvaluationSummary = "evaluation-summary"
)

const collaboratorTimeout = 5 * time.Second

// Requester sends structured requests to the coordination service.
type Requester interface {
	ParticipantInput(id registry.Identity, input stdjson.RawMessage, receivedAt time.Time)
	ParticipantCreated(participantID string)
}

// ClientMessage is the JSON envelope expected from clients.
type ClientMessage struct {
	Kind    string             `json:"kind"`
	Payload stdjson.RawMessage `json:"payload"`
}

// ClientEvent is the JSON envelope sent to clients.
type ClientEvent struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload"`
}

// JoinedPayload announces a participant to a session's game-masters.
type JoinedPayload struct {
	ParticipantID string `json:"participant_id"`
	SessionID     string `json:"session_id"`
	DisplayName   string `json:"display_name"`
	AvatarURL     string `json:"avatar_url,omitempty"`
}

// LeftPayload announces a departure to a session's game-masters.
type LeftPayload struct {
	ParticipantID string `json:"participant_id"`
	SessionID     string `json:"session_id"`
}

// EvaluationDetailPayload is the full result sent to the evaluated player.
type EvaluationDetailPayload struct {
	Correct   bool               `json:"correct"`
	ElapsedMS int64              `json:"elapsed_ms"`
	Detail    stdjson.RawMessage `json:"detail,omitempty"`
}

// EvaluationSummaryPayload is the digest sent to the session's game-masters.
type EvaluationSummaryPayload struct {
	ParticipantID string `json:"participant_id"`
	SessionID     string `json:"session_id"`
	Correct       bool   `json:"correct"`
	ElapsedMS     int64  `json:"elapsed_ms"`
	InputLength   int    `json:"input_length"`
}

// Router bridges clients and the coordination service.
type Router struct {
	log       *zap.Logger
	lifecycle *lifecycle.Manager
	coord     Requester
	profiles  profile.Loader
	creator   usercreate.Creator
	now       func() time.Time
}

// New creates a router over the lifecycle manager's registries.
func New(lc *lifecycle.Manager, coord Requester, profiles profile.Loader, creator usercreate.Creator, log *zap.Logger) *Router {
	return &Router{
		log:       log.With(zap.String("module", "router")),
		lifecycle: lc,
		coord:     coord,
		profiles:  profiles,
		creator:   creator,
		now:       time.Now,
	}
}

// HandleClientMessage routes one inbound message from a hall connection.
// Messages from connections without an active entry are discarded with a
// warning, as are unrecognized kinds; neither disrupts other connections.
func (r *Router) HandleClientMessage(conn ws.Conn, data []byte) {
	entry, ok := r.lifecycle.Hall().ByConn(conn)
	if !ok {
		r.discard("unknown-client", "Message from unknown client", zap.String("conn_id", conn.ID()))
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		r.discard("malformed", "Malformed client message",
			zap.String("participant_id", entry.Identity.ParticipantID),
			zap.Error(err))
		return
	}

	switch msg.Kind {
	case MsgSolutionInput:
		r.coord.ParticipantInput(entry.Identity, msg.Payload, r.now())
	case MsgCreateParticipant:
		r.createParticipant(entry.Identity, msg.Payload)
	default:
		r.discard("unknown-kind", "Unrecognized client message kind",
			zap.String("kind", msg.Kind),
			zap.String("participant_id", entry.Identity.ParticipantID))
	}
}

// createParticipant asks the user-creation collaborator for a new participant
// and forwards the identifier to the coordination service. The call leaves
// the message-handling path so one slow collaborator round trip never stalls
// other connections.
func (r *Router) createParticipant(id registry.Identity, payload stdjson.RawMessage) {
	var data usercreate.UserData
	if err := json.Unmarshal(payload, &data); err != nil {
		r.discard("malformed", "Malformed create-participant payload",
			zap.String("participant_id", id.ParticipantID),
			zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
		defer cancel()
		participantID, err := r.creator.Create(ctx, data)
		if err != nil {
			r.log.Warn("Participant creation failed",
				zap.String("session_id", id.SessionID),
				zap.Error(err))
			return
		}
		r.coord.ParticipantCreated(participantID)
	}()
}

// HandleCoordinatorEvent routes one event from the coordination service.
func (r *Router) HandleCoordinatorEvent(ev coordinator.Event) {
	switch ev.Kind {
	case coordinator.EventRoleAssigned:
		r.handleRoleAssigned(ev)
	case coordinator.EventEvaluationResult:
		r.handleEvaluationResult(ev)
	case coordinator.EventCreationConfirmed:
		r.handleCreationConfirmed(ev)
	default:
		r.discard("unknown-event", "Unrecognized coordination event kind", zap.String("kind", ev.Kind))
	}
}

func (r *Router) handleRoleAssigned(ev coordinator.Event) {
	var payload coordinator.RoleAssignedEvent
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		r.discard("malformed", "Malformed role-assigned event", zap.Error(err))
		return
	}
	role, err := registry.ParseRole(payload.Role)
	if err != nil {
		r.discard("invalid-role", "Role outside the closed set", zap.String("role", payload.Role))
		return
	}
	id := registry.Identity{ParticipantID: payload.ParticipantID, SessionID: payload.SessionID}
	if err := r.lifecycle.Promote(id, role); err != nil {
		// Promote already logged the unknown participant.
		metrics.DiscardedMessages.WithLabelValues("unknown-participant").Inc()
		return
	}

	// Profile enrichment runs as its own task, joined before the broadcast.
	// A profile failure degrades to the default display name and must never
	// block the join notification.
	go r.announceJoined(id)
}

func (r *Router) announceJoined(id registry.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
	defer cancel()
	profiles := profile.Resolve(ctx, r.profiles, []string{id.ParticipantID}, r.log)
	r.ToGameMasters(id.SessionID, EvtParticipantJoined, JoinedPayload{
		ParticipantID: id.ParticipantID,
		SessionID:     id.SessionID,
		DisplayName:   profiles[0].DisplayName,
		AvatarURL:     profiles[0].AvatarURL,
	})
}

func (r *Router) handleEvaluationResult(ev coordinator.Event) {
	var payload coordinator.EvaluationResultEvent
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		r.discard("malformed", "Malformed evaluation-result event", zap.Error(err))
		return
	}
	id := registry.Identity{ParticipantID: payload.ParticipantID, SessionID: payload.SessionID}
	entry, ok := r.lifecycle.Hall().ByIdentity(id)
	if !ok {
		r.discard("unknown-participant", "Evaluation result for unknown participant",
			zap.String("participant_id", id.ParticipantID),
			zap.String("session_id", id.SessionID))
		return
	}

	detail := ClientEvent{Kind: EvtEvaluationDetail, Payload: EvaluationDetailPayload{
		Correct:   payload.Correct,
		ElapsedMS: payload.ElapsedMS,
		Detail:    payload.Detail,
	}}
	if err := entry.Conn.Send(detail); err != nil {
		r.log.Warn("Failed to deliver evaluation detail",
			zap.String("participant_id", id.ParticipantID),
			zap.Error(err))
	}

	r.ToGameMasters(id.SessionID, EvtEvaluationSummary, EvaluationSummaryPayload{
		ParticipantID: id.ParticipantID,
		SessionID:     id.SessionID,
		Correct:       payload.Correct,
		ElapsedMS:     payload.ElapsedMS,
		InputLength:   len(payload.Input),
	})
}

func (r *Router) handleCreationConfirmed(ev coordinator.Event) {
	var payload coordinator.CreationConfirmedEvent
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		r.discard("malformed", "Malformed creation-confirmed event", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
	defer cancel()
	r.creator.Confirm(ctx, payload.ParticipantID)
}

// ParticipantLeft implements lifecycle.Announcer.
func (r *Router) ParticipantLeft(id registry.Identity) {
	r.ToGameMasters(id.SessionID, EvtParticipantLeft, LeftPayload{
		ParticipantID: id.ParticipantID,
		SessionID:     id.SessionID,
	})
}

// ToGameMasters broadcasts an event to every game-master of a session.
func (r *Router) ToGameMasters(sessionID, kind string, payload interface{}) {
	r.broadcast(r.lifecycle.Hall().BySessionAndRole(sessionID, registry.RoleGameMaster), kind, payload)
}

// ToPlayers broadcasts an event to every player of a session.
func (r *Router) ToPlayers(sessionID, kind string, payload interface{}) {
	r.broadcast(r.lifecycle.Hall().BySessionAndRole(sessionID, registry.RolePlayer), kind, payload)
}

// ToSession broadcasts an event to every member of a session.
func (r *Router) ToSession(sessionID, kind string, payload interface{}) {
	r.broadcast(r.lifecycle.Hall().BySession(sessionID), kind, payload)
}

// broadcast sends independently to each connection; one failed send never
// prevents delivery to the others.
func (r *Router) broadcast(entries []*registry.ActiveEntry, kind string, payload interface{}) {
	for _, e := range entries {
		if err := e.Conn.Send(ClientEvent{Kind: kind, Payload: payload}); err != nil {
			metrics.BroadcastsSent.WithLabelValues(kind, "error").Inc()
			r.log.Warn("Broadcast send failed",
				zap.String("event", kind),
				zap.String("participant_id", e.Identity.ParticipantID),
				zap.Error(err))
			continue
		}
		metrics.BroadcastsSent.WithLabelValues(kind, "ok").Inc()
	}
}

func (r *Router) discard(reason, msg string, fields ...zap.Field) {
	metrics.DiscardedMessages.WithLabelValues(reason).Inc()
	r.log.Warn(msg, fields...)
}
