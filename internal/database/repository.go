package database

import "context"

// ChatRepository is the persistence boundary of the relay. Lookups that
// match nothing return sql.ErrNoRows.
type ChatRepository interface {
	Ping() error
	CreateAccount(ctx context.Context, params CreateAccountParams) (User, error)
	GetAccountById(ctx context.Context, accountId int) (User, error)
	GetAccountByUsername(ctx context.Context, username string) (User, error)
	GetAccountByEmail(ctx context.Context, email string) (User, error)
	CreateRoom(ctx context.Context, params CreateRoomParams) (Room, error)
	GetRoomById(ctx context.Context, roomId string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
	// GetMessagesByRoom returns a room's messages by ascending creation
	// time, ties broken by id.
	GetMessagesByRoom(ctx context.Context, roomId string) ([]Message, error)
	Close() error
}
