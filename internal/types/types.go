package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

type Room struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Message is a chat message as accepted and persisted by the relay.
type Message struct {
	Id        int       `json:"id"`
	RoomId    string    `json:"roomId"`
	UserId    int       `json:"userId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
