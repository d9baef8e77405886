package server

import (
	"context"
	"sync"

	"github.com/npezzotti/go-chatrelay/internal/stats"
	"go.uber.org/zap"
)

// ChatServer tracks connected clients and which topics they subscribe to. It
// is the Publisher the Router emits through.
type ChatServer struct {
	log            *zap.SugaredLogger
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	topics         map[string]map[*Client]struct{}
	topicsLock     sync.RWMutex
	registerChan   chan *Client
	deRegisterChan chan *Client
	stop           chan struct{}
	stopOnce       sync.Once
	done           chan struct{}
}

func NewChatServer(logger *zap.SugaredLogger, sp stats.StatsProvider) *ChatServer {
	sp.RegisterMetric(stats.NumActiveClients)
	sp.RegisterMetric(stats.NumMessagesStored)
	sp.RegisterMetric(stats.NumNotificationsSent)
	sp.RegisterMetric(stats.NumRouterErrors)

	return &ChatServer{
		log:            logger,
		stats:          sp,
		clients:        make(map[*Client]struct{}),
		topics:         make(map[string]map[*Client]struct{}),
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (cs *ChatServer) Run() {
	for {
		select {
		case client := <-cs.registerChan:
			cs.clients[client] = struct{}{}
			cs.stats.Incr(stats.NumActiveClients)
			cs.log.Debugw("added connection", "remote", client.remoteAddr, "clients", len(cs.clients))
		case client := <-cs.deRegisterChan:
			if _, ok := cs.clients[client]; ok {
				delete(cs.clients, client)
				cs.unsubscribeAll(client)
				cs.stats.Decr(stats.NumActiveClients)
				cs.log.Debugw("removed connection", "remote", client.remoteAddr, "clients", len(cs.clients))
			}
		case <-cs.stop:
			cs.log.Infow("shutting down connections", "clients", len(cs.clients))
			for c := range cs.clients {
				c.stopClient()
			}

			close(cs.done)
			return
		}
	}
}

// Register adds c to the server. It is a no-op once the server has stopped.
func (cs *ChatServer) Register(c *Client) {
	select {
	case cs.registerChan <- c:
	case <-cs.done:
		c.stopClient()
	}
}

func (cs *ChatServer) deRegister(c *Client) {
	select {
	case cs.deRegisterChan <- c:
	case <-cs.done:
	}
}

func (cs *ChatServer) Subscribe(topic string, c *Client) {
	cs.topicsLock.Lock()
	defer cs.topicsLock.Unlock()

	subs, ok := cs.topics[topic]
	if !ok {
		subs = make(map[*Client]struct{})
		cs.topics[topic] = subs
	}
	subs[c] = struct{}{}
}

func (cs *ChatServer) Unsubscribe(topic string, c *Client) {
	cs.topicsLock.Lock()
	defer cs.topicsLock.Unlock()

	if subs, ok := cs.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(cs.topics, topic)
		}
	}
}

func (cs *ChatServer) unsubscribeAll(c *Client) {
	cs.topicsLock.Lock()
	defer cs.topicsLock.Unlock()

	for topic, subs := range cs.topics {
		delete(subs, c)
		if len(subs) == 0 {
			delete(cs.topics, topic)
		}
	}
}

// Publish queues msg on every subscriber of topic. Subscribers with a full
// send queue miss the message.
func (cs *ChatServer) Publish(topic string, msg *ServerMessage) {
	cs.topicsLock.RLock()
	defer cs.topicsLock.RUnlock()

	for c := range cs.topics[topic] {
		if !c.queueMessage(msg) {
			cs.log.Warnw("dropped message for slow subscriber", "topic", topic, "remote", c.remoteAddr)
		}
	}
}

func (cs *ChatServer) subscriberCount(topic string) int {
	cs.topicsLock.RLock()
	defer cs.topicsLock.RUnlock()
	return len(cs.topics[topic])
}

// Shutdown stops every client and the run loop, waiting until ctx is done.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.stopOnce.Do(func() { close(cs.stop) })

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
