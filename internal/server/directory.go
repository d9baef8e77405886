package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/npezzotti/go-chatrelay/internal/database"
	"github.com/npezzotti/go-chatrelay/internal/types"
	"github.com/teris-io/shortid"
	"go.uber.org/zap"
)

// RoomDirectory creates rooms and resolves room ids to display names.
type RoomDirectory struct {
	db              database.ChatRepository
	log             *zap.SugaredLogger
	generateShortId func() (string, error)
}

func NewRoomDirectory(db database.ChatRepository, logger *zap.SugaredLogger) *RoomDirectory {
	return &RoomDirectory{
		db:              db,
		log:             logger,
		generateShortId: shortid.Generate,
	}
}

func (d *RoomDirectory) Create(ctx context.Context, name string) (types.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Room{}, NewValidationError("Room name cannot be empty")
	}

	sid, err := d.generateShortId()
	if err != nil {
		return types.Room{}, NewStorageError("Failed to create room", fmt.Errorf("generate room id: %w", err))
	}

	dbRoom, err := d.db.CreateRoom(ctx, database.CreateRoomParams{Id: sid, Name: name})
	if err != nil {
		return types.Room{}, NewStorageError("Failed to create room", err)
	}

	d.log.Infow("created room", "room", dbRoom.Id, "name", dbRoom.Name)

	return toRoom(dbRoom), nil
}

func (d *RoomDirectory) ListAll(ctx context.Context) ([]types.Room, error) {
	dbRooms, err := d.db.ListRooms(ctx)
	if err != nil {
		return nil, NewStorageError("Failed to list rooms", err)
	}

	rooms := make([]types.Room, 0, len(dbRooms))
	for _, r := range dbRooms {
		rooms = append(rooms, toRoom(r))
	}

	return rooms, nil
}

// NameOf returns the room's display name, or a NotFound error.
func (d *RoomDirectory) NameOf(ctx context.Context, roomId string) (string, error) {
	room, err := d.Get(ctx, roomId)
	if err != nil {
		return "", err
	}

	return room.Name, nil
}

func (d *RoomDirectory) Get(ctx context.Context, roomId string) (types.Room, error) {
	dbRoom, err := d.db.GetRoomById(ctx, roomId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Room{}, NewNotFoundError("Room not found")
		}
		return types.Room{}, NewStorageError("Failed to load room", err)
	}

	return toRoom(dbRoom), nil
}

func toRoom(r database.Room) types.Room {
	return types.Room{
		Id:        r.Id,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
	}
}
