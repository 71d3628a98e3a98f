package router

import (
	"encoding/json"
	"time"

	"github.com/wricardo/socialspot/room/session"
)

// Inbound is a client to server event name.
type Inbound string

const (
	JoinApp         Inbound = "join_app"
	CheckIn         Inbound = "check_in"
	SendInteraction Inbound = "send_interaction"
	SendInvite      Inbound = "send_invite"
	AnswerInvite    Inbound = "answer_invite"
	PrivateMessage  Inbound = "private_message"
	StartGame       Inbound = "start_game"
	AnswerQuiz      Inbound = "answer_quiz"
)

// InboundKinds returns every inbound event name.
func InboundKinds() []Inbound {
	return []Inbound{
		JoinApp, CheckIn, SendInteraction, SendInvite,
		AnswerInvite, PrivateMessage, StartGame, AnswerQuiz,
	}
}

// Outbound is a server to client event name.
type Outbound string

const (
	AppJoined             Outbound = "app_joined"
	RoomUsers             Outbound = "room_users"
	UserEntered           Outbound = "user_entered"
	UserLeft              Outbound = "user_left"
	ReceiveInteraction    Outbound = "receive_interaction"
	ReceiveInvite         Outbound = "receive_invite"
	InviteAnswered        Outbound = "invite_answered"
	ReceivePrivateMessage Outbound = "receive_private_message"
	GameStarted           Outbound = "game_started"
	ScoreUpdate           Outbound = "score_update"
)

// OutboundKinds returns every outbound event name.
func OutboundKinds() []Outbound {
	return []Outbound{
		AppJoined, RoomUsers, UserEntered, UserLeft, ReceiveInteraction,
		ReceiveInvite, InviteAnswered, ReceivePrivateMessage, GameStarted, ScoreUpdate,
	}
}

// Envelope is the wire frame for both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// InvitePayload is delivered as receive_interaction and receive_invite.
type InvitePayload struct {
	From session.UserSession `json:"from"`
	Kind string              `json:"kind"`
}

// InviteAnswerPayload is delivered as invite_answered back to whoever sent the invite.
type InviteAnswerPayload struct {
	From     session.UserSession `json:"from"`
	Accepted bool                `json:"accepted"`
	Kind     string              `json:"kind"`
}

// PrivateMessagePayload is delivered as receive_private_message.
type PrivateMessagePayload struct {
	FromID           string    `json:"fromId"`
	FromConnectionID string    `json:"fromConnectionId"`
	Message          string    `json:"message"`
	Timestamp        time.Time `json:"timestamp"`
}
