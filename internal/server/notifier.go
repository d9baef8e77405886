package server

import (
	"context"
	"slices"

	"github.com/npezzotti/go-chatrelay/internal/stats"
	"github.com/npezzotti/go-chatrelay/internal/types"
	"go.uber.org/zap"
)

const (
	previewLength = 20
	previewSuffix = "..."
)

// Preview truncates text to its first 20 characters, marking the cut.
func Preview(text string) string {
	r := []rune(text)
	if len(r) <= previewLength {
		return text
	}

	return string(r[:previewLength]) + previewSuffix
}

// Notifier pings every other tracked room when a message is stored.
type Notifier struct {
	rooms    *RoomDirectory
	presence *PresenceTracker
	pub      Publisher
	log      *zap.SugaredLogger
	stats    stats.StatsProvider
}

func NewNotifier(rooms *RoomDirectory, presence *PresenceTracker, pub Publisher, logger *zap.SugaredLogger, sp stats.StatsProvider) *Notifier {
	return &Notifier{
		rooms:    rooms,
		presence: presence,
		pub:      pub,
		log:      logger,
		stats:    sp,
	}
}

// Notify emits a notification for msg to each tracked room except its own.
func (n *Notifier) Notify(ctx context.Context, msg types.Message) error {
	targets := make([]string, 0)
	for _, id := range n.presence.Rooms() {
		if id != msg.RoomId {
			targets = append(targets, id)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	slices.Sort(targets)

	name, err := n.rooms.NameOf(ctx, msg.RoomId)
	if err != nil {
		return err
	}

	ev := NewNotificationEvent(Notification{
		RoomId:   msg.RoomId,
		RoomName: name,
		Preview:  Preview(msg.Text),
	})
	for _, id := range targets {
		n.pub.Publish(Topic(id), ev)
		n.stats.Incr(stats.NumNotificationsSent)
	}

	n.log.Debugw("sent notifications", "room", msg.RoomId, "targets", len(targets))

	return nil
}
