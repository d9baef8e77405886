package server

import (
	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chatrelay/internal/config"
	"github.com/npezzotti/go-chatrelay/internal/database"
	"github.com/npezzotti/go-chatrelay/internal/stats"
	"go.uber.org/zap"
)

// Relay wires the chat server, router and their collaborators around one
// repository.
type Relay struct {
	Server   *ChatServer
	Presence *PresenceTracker
	Rooms    *RoomDirectory
	Store    *MessageStore
	Router   *Router

	log       *zap.SugaredLogger
	rateLimit config.RateLimit
}

func NewRelay(db database.ChatRepository, logger *zap.SugaredLogger, sp stats.StatsProvider, rl config.RateLimit) *Relay {
	cs := NewChatServer(logger, sp)
	presence := NewPresenceTracker()
	rooms := NewRoomDirectory(db, logger)
	store := NewMessageStore(db, logger, sp)
	notifier := NewNotifier(rooms, presence, cs, logger, sp)

	return &Relay{
		Server:    cs,
		Presence:  presence,
		Rooms:     rooms,
		Store:     store,
		Router:    NewRouter(store, presence, notifier, cs, logger, sp),
		log:       logger,
		rateLimit: rl,
	}
}

// Serve attaches conn to the relay and starts its pumps.
func (r *Relay) Serve(conn *websocket.Conn) {
	c := NewClient(conn, r.Server, r.Router, r.rateLimit, r.log)
	r.Server.Register(c)
	go c.Write()
	go c.Read()
}
