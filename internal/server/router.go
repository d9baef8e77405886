package server

import (
	"context"

	"github.com/npezzotti/go-chatrelay/internal/stats"
	"go.uber.org/zap"
)

// Publisher delivers an outbound event to the subscribers of a topic.
type Publisher interface {
	Publish(topic string, msg *ServerMessage)
}

// Router dispatches inbound events for a room. It holds no state of its own;
// every failure becomes a single error event on the event's room.
type Router struct {
	store    *MessageStore
	presence *PresenceTracker
	notifier *Notifier
	pub      Publisher
	log      *zap.SugaredLogger
	stats    stats.StatsProvider
}

func NewRouter(store *MessageStore, presence *PresenceTracker, notifier *Notifier, pub Publisher, logger *zap.SugaredLogger, sp stats.StatsProvider) *Router {
	return &Router{
		store:    store,
		presence: presence,
		notifier: notifier,
		pub:      pub,
		log:      logger,
		stats:    sp,
	}
}

func (r *Router) Dispatch(ctx context.Context, roomId string, ev InboundEvent) {
	if err := r.handle(ctx, roomId, ev); err != nil {
		kind := ""
		if ev != nil {
			kind = ev.Kind()
		}
		r.Reject(roomId, kind, err)
	}
}

func (r *Router) handle(ctx context.Context, roomId string, ev InboundEvent) error {
	switch e := ev.(type) {
	case MessageEvent:
		return r.handleMessage(ctx, roomId, e.Draft)
	case TypingEvent:
		if e.Username == "" {
			return NewValidationError("Username is required")
		}
		r.pub.Publish(Topic(roomId), NewTypingEvent(e.Username))
	case JoinEvent:
		if e.Username == "" {
			return NewValidationError("Username is required")
		}
		members := r.presence.Join(roomId, e.Username)
		r.pub.Publish(Topic(roomId), NewUserListEvent(members))
		r.log.Infow("user joined", "room", roomId, "username", e.Username)
	case LeaveEvent:
		if e.Username == "" {
			return NewValidationError("Username is required")
		}
		members := r.presence.Leave(roomId, e.Username)
		r.pub.Publish(Topic(roomId), NewUserListEvent(members))
		r.log.Infow("user left", "room", roomId, "username", e.Username)
	default:
		return ErrUnknownEventKind
	}

	return nil
}

func (r *Router) handleMessage(ctx context.Context, roomId string, d MessageDraft) error {
	if d.RoomId != "" && d.RoomId != roomId {
		return NewValidationError("Room id does not match destination")
	}

	msg, err := r.store.Save(ctx, d)
	if err != nil {
		return err
	}

	r.pub.Publish(Topic(roomId), NewMessageEvent(msg))

	// the message is already acknowledged; fan-out failures stop here
	if err := r.notifier.Notify(ctx, msg); err != nil {
		r.log.Warnw("notification fan-out failed", "room", roomId, "message", msg.Id, "error", err)
	}

	return nil
}

// Reject reports err to the room's subscribers as an error event.
func (r *Router) Reject(roomId, kind string, err error) {
	r.stats.Incr(stats.NumRouterErrors)

	if IsKind(err, KindValidation) || IsKind(err, KindNotFound) {
		r.log.Warnw("rejected event", "room", roomId, "type", kind, "error", err)
	} else {
		r.log.Errorw("failed to handle event", "room", roomId, "type", kind, "error", err)
	}

	if roomId == "" {
		return
	}

	r.pub.Publish(Topic(roomId), NewErrorEvent(clientErrorText(err)))
}
