package database

import "time"

type Room struct {
	Id        string
	Name      string
	CreatedAt time.Time
}

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
}

type Message struct {
	Id        int
	RoomId    string
	UserId    int
	Content   string
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type CreateRoomParams struct {
	Id   string
	Name string
}

type CreateMessageParams struct {
	RoomId    string
	UserId    int
	Content   string
	CreatedAt time.Time
}
