package server

import (
	"sync"
	"testing"

	"github.com/npezzotti/go-chatrelay/internal/database"
	"github.com/npezzotti/go-chatrelay/internal/stats"
	"github.com/npezzotti/go-chatrelay/internal/testutil"
	"github.com/stretchr/testify/mock"
)

type published struct {
	topic string
	msg   *ServerMessage
}

// recordingPublisher captures everything the router emits.
type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
}

func (p *recordingPublisher) Publish(topic string, msg *ServerMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{topic: topic, msg: msg})
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]published, len(p.sent))
	copy(out, p.sent)
	return out
}

func (p *recordingPublisher) ofType(typ string) []published {
	var out []published
	for _, s := range p.all() {
		if s.msg.Type == typ {
			out = append(out, s)
		}
	}
	return out
}

func (p *recordingPublisher) to(topic string) []published {
	var out []published
	for _, s := range p.all() {
		if s.topic == topic {
			out = append(out, s)
		}
	}
	return out
}

func newMockStats() *stats.MockStatsUpdater {
	su := &stats.MockStatsUpdater{}
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()
	su.On("RegisterMetric", mock.Anything).Maybe()
	return su
}

type routerFixture struct {
	db       *database.MockChatRepository
	pub      *recordingPublisher
	presence *PresenceTracker
	rooms    *RoomDirectory
	store    *MessageStore
	router   *Router
}

func newRouterFixture(t *testing.T, db database.ChatRepository) *routerFixture {
	logger := testutil.TestLogger(t)
	su := newMockStats()
	pub := &recordingPublisher{}
	presence := NewPresenceTracker()
	rooms := NewRoomDirectory(db, logger)
	store := NewMessageStore(db, logger, su)
	notifier := NewNotifier(rooms, presence, pub, logger, su)

	f := &routerFixture{
		pub:      pub,
		presence: presence,
		rooms:    rooms,
		store:    store,
		router:   NewRouter(store, presence, notifier, pub, logger, su),
	}
	if m, ok := db.(*database.MockChatRepository); ok {
		f.db = m
	}
	return f
}
