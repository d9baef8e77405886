package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSqlite
)

// SqlChatRepository implements ChatRepository on database/sql. Queries are
// written with ? placeholders and rebound for the connection's dialect.
type SqlChatRepository struct {
	conn    *sql.DB
	dialect dialect
}

func (db *SqlChatRepository) rebind(query string) string {
	if db.dialect != dialectPostgres {
		return query
	}

	return rebindDollar(query)
}

// rebindDollar rewrites ? placeholders as $1, $2, ...
func rebindDollar(query string) string {
	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 8)
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}

		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}

func (db *SqlChatRepository) Ping() error {
	return db.conn.Ping()
}

func (db *SqlChatRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *SqlChatRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (User, error) {
	u := User{
		Username:     params.Username,
		EmailAddress: params.EmailAddress,
		PasswordHash: params.PasswordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	row := db.conn.QueryRowContext(ctx,
		db.rebind("INSERT INTO accounts (username, email, password_hash, created_at) "+
			"VALUES (?, ?, ?, ?) RETURNING id"),
		u.Username,
		u.EmailAddress,
		u.PasswordHash,
		u.CreatedAt,
	)

	if err := row.Scan(&u.Id); err != nil {
		return User{}, err
	}

	return u, nil
}

func (db *SqlChatRepository) getAccount(ctx context.Context, where string, arg any) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("SELECT id, username, email, password_hash, created_at FROM accounts "+
			"WHERE "+where+" = ? LIMIT 1"),
		arg,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()

	return u, nil
}

func (db *SqlChatRepository) GetAccountById(ctx context.Context, id int) (User, error) {
	return db.getAccount(ctx, "id", id)
}

func (db *SqlChatRepository) GetAccountByUsername(ctx context.Context, username string) (User, error) {
	return db.getAccount(ctx, "username", username)
}

func (db *SqlChatRepository) GetAccountByEmail(ctx context.Context, email string) (User, error) {
	return db.getAccount(ctx, "email", email)
}

func (db *SqlChatRepository) CreateRoom(ctx context.Context, params CreateRoomParams) (Room, error) {
	room := Room{
		Id:        params.Id,
		Name:      params.Name,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := db.conn.ExecContext(ctx,
		db.rebind("INSERT INTO rooms (id, name, created_at) VALUES (?, ?, ?)"),
		room.Id,
		room.Name,
		room.CreatedAt,
	)
	if err != nil {
		return Room{}, err
	}

	return room, nil
}

func (db *SqlChatRepository) GetRoomById(ctx context.Context, id string) (Room, error) {
	row := db.conn.QueryRowContext(ctx,
		db.rebind("SELECT id, name, created_at FROM rooms WHERE id = ? LIMIT 1"),
		id,
	)

	var room Room
	if err := row.Scan(&room.Id, &room.Name, &room.CreatedAt); err != nil {
		return Room{}, err
	}
	room.CreatedAt = room.CreatedAt.UTC()

	return room, nil
}

func (db *SqlChatRepository) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT id, name, created_at FROM rooms")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]Room, 0)
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.Id, &room.Name, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		room.CreatedAt = room.CreatedAt.UTC()
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return rooms, nil
}

func (db *SqlChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	msg := Message{
		RoomId:    params.RoomId,
		UserId:    params.UserId,
		Content:   params.Content,
		CreatedAt: params.CreatedAt.UTC(),
	}

	row := db.conn.QueryRowContext(ctx,
		db.rebind("INSERT INTO messages (room_id, user_id, content, created_at) "+
			"VALUES (?, ?, ?, ?) RETURNING id"),
		msg.RoomId,
		msg.UserId,
		msg.Content,
		msg.CreatedAt,
	)

	if err := row.Scan(&msg.Id); err != nil {
		return Message{}, err
	}

	return msg, nil
}

func (db *SqlChatRepository) GetMessagesByRoom(ctx context.Context, roomId string) ([]Message, error) {
	rows, err := db.conn.QueryContext(ctx,
		db.rebind("SELECT id, room_id, user_id, content, created_at FROM messages "+
			"WHERE room_id = ? ORDER BY created_at ASC, id ASC"),
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.Id, &msg.RoomId, &msg.UserId, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return messages, nil
}
