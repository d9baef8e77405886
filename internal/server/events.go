package server

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/npezzotti/go-chatrelay/internal/types"
)

const (
	EventMessage      = "message"
	EventTyping       = "typing"
	EventJoin         = "join"
	EventLeave        = "leave"
	EventUserList     = "userList"
	EventNotification = "notification"
	EventError        = "error"
)

const topicPrefix = "/topic/room/"

// Topic returns the channel name subscribers of a room listen on.
func Topic(roomId string) string {
	return topicPrefix + roomId
}

// InboundEvent is one of JoinEvent, LeaveEvent, TypingEvent, MessageEvent
// or UnknownEvent.
type InboundEvent interface {
	Kind() string
	inbound()
}

type JoinEvent struct {
	Username string
}

type LeaveEvent struct {
	Username string
}

type TypingEvent struct {
	Username string
}

type MessageEvent struct {
	Draft MessageDraft
}

// UnknownEvent carries a type the relay does not handle.
type UnknownEvent struct {
	Type string
}

func (JoinEvent) Kind() string      { return EventJoin }
func (LeaveEvent) Kind() string     { return EventLeave }
func (TypingEvent) Kind() string    { return EventTyping }
func (MessageEvent) Kind() string   { return EventMessage }
func (e UnknownEvent) Kind() string { return e.Type }

func (JoinEvent) inbound()    {}
func (LeaveEvent) inbound()   {}
func (TypingEvent) inbound()  {}
func (MessageEvent) inbound() {}
func (UnknownEvent) inbound() {}

// MessageDraft is a chat message as submitted by a client, before it is
// accepted.
type MessageDraft struct {
	RoomId string
	UserId int
	Text   string
}

// roomRef accepts a room id sent either as a JSON string or a number.
type roomRef string

func (r *roomRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = roomRef(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = roomRef(n.String())
	return nil
}

type inboundEnvelope struct {
	Type        string  `json:"type"`
	Username    string  `json:"username"`
	RoomId      roomRef `json:"roomId"`
	UserId      int     `json:"userId"`
	Text        *string `json:"text"`
	MessageText *string `json:"messageText"`
}

// DecodeInbound parses a client payload into an InboundEvent. Types the relay
// does not know decode to UnknownEvent rather than failing.
func DecodeInbound(raw []byte) (InboundEvent, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, NewValidationError("Invalid message format")
	}

	switch env.Type {
	case EventJoin:
		return JoinEvent{Username: strings.TrimSpace(env.Username)}, nil
	case EventLeave:
		return LeaveEvent{Username: strings.TrimSpace(env.Username)}, nil
	case EventTyping:
		return TypingEvent{Username: strings.TrimSpace(env.Username)}, nil
	case EventMessage:
		draft := MessageDraft{
			RoomId: string(env.RoomId),
			UserId: env.UserId,
		}
		switch {
		case env.Text != nil:
			draft.Text = *env.Text
		case env.MessageText != nil:
			draft.Text = *env.MessageText
		}
		return MessageEvent{Draft: draft}, nil
	default:
		return UnknownEvent{Type: env.Type}, nil
	}
}

// ServerMessage is an outbound event. Error events carry Message instead of
// Data.
type ServerMessage struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type TypingData struct {
	Username string `json:"username"`
}

type Notification struct {
	RoomId   string `json:"roomId"`
	RoomName string `json:"roomName"`
	Preview  string `json:"preview"`
}

func NewMessageEvent(msg types.Message) *ServerMessage {
	return &ServerMessage{Type: EventMessage, Data: msg}
}

func NewTypingEvent(username string) *ServerMessage {
	return &ServerMessage{Type: EventTyping, Data: TypingData{Username: username}}
}

func NewUserListEvent(usernames []string) *ServerMessage {
	if usernames == nil {
		usernames = []string{}
	}
	return &ServerMessage{Type: EventUserList, Data: usernames}
}

func NewNotificationEvent(n Notification) *ServerMessage {
	return &ServerMessage{Type: EventNotification, Data: n}
}

func NewErrorEvent(message string) *ServerMessage {
	return &ServerMessage{Type: EventError, Message: message}
}

func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
