package server

import (
	"context"
	"strings"

	"github.com/npezzotti/go-chatrelay/internal/database"
	"github.com/npezzotti/go-chatrelay/internal/stats"
	"github.com/npezzotti/go-chatrelay/internal/types"
	"go.uber.org/zap"
)

// MessageStore persists chat messages per room. Timestamps are assigned here,
// at acceptance, and define each room's message order.
type MessageStore struct {
	db    database.ChatRepository
	log   *zap.SugaredLogger
	stats stats.StatsProvider
}

func NewMessageStore(db database.ChatRepository, logger *zap.SugaredLogger, sp stats.StatsProvider) *MessageStore {
	return &MessageStore{
		db:    db,
		log:   logger,
		stats: sp,
	}
}

func validateDraft(d MessageDraft) error {
	if strings.TrimSpace(d.RoomId) == "" {
		return NewValidationError("Room id is required")
	}
	if d.UserId <= 0 {
		return NewValidationError("User id is required")
	}
	if strings.TrimSpace(d.Text) == "" {
		return NewValidationError("Message text cannot be empty")
	}

	return nil
}

// Save validates d, stamps it and persists it.
func (s *MessageStore) Save(ctx context.Context, d MessageDraft) (types.Message, error) {
	if err := validateDraft(d); err != nil {
		return types.Message{}, err
	}

	dbMsg, err := s.db.CreateMessage(ctx, database.CreateMessageParams{
		RoomId:    d.RoomId,
		UserId:    d.UserId,
		Content:   d.Text,
		CreatedAt: Now(),
	})
	if err != nil {
		return types.Message{}, NewStorageError("Failed to save message", err)
	}

	s.stats.Incr(stats.NumMessagesStored)
	s.log.Debugw("stored message", "room", dbMsg.RoomId, "id", dbMsg.Id, "user", dbMsg.UserId)

	return toMessage(dbMsg), nil
}

// ListByRoom returns the room's messages by ascending timestamp, ties broken
// by id.
func (s *MessageStore) ListByRoom(ctx context.Context, roomId string) ([]types.Message, error) {
	dbMsgs, err := s.db.GetMessagesByRoom(ctx, roomId)
	if err != nil {
		return nil, NewStorageError("Failed to load messages", err)
	}

	msgs := make([]types.Message, 0, len(dbMsgs))
	for _, m := range dbMsgs {
		msgs = append(msgs, toMessage(m))
	}

	return msgs, nil
}

func toMessage(m database.Message) types.Message {
	return types.Message{
		Id:        m.Id,
		RoomId:    m.RoomId,
		UserId:    m.UserId,
		Text:      m.Content,
		Timestamp: m.CreatedAt,
	}
}
