package server

import (
	"context"
	"testing"
	"time"

	"github.com/npezzotti/go-chatrelay/internal/stats"
	"github.com/npezzotti/go-chatrelay/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestChatServer(t *testing.T, su *stats.MockStatsUpdater) *ChatServer {
	return NewChatServer(testutil.TestLogger(t), su)
}

func TestNewChatServer(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("RegisterMetric", mock.Anything).Return().Times(4)

	cs := newTestChatServer(t, su)
	assert.NotNil(t, cs.clients, "expected clients map to be initialized")
	assert.NotNil(t, cs.topics, "expected topics map to be initialized")
	assert.NotNil(t, cs.registerChan, "expected registerChan to be initialized")
	assert.NotNil(t, cs.deRegisterChan, "expected deRegisterChan to be initialized")
}

func TestChatServerPublish(t *testing.T) {
	cs := newTestChatServer(t, newMockStats())

	a := &Client{send: make(chan *ServerMessage, 1)}
	b := &Client{send: make(chan *ServerMessage, 1)}
	cs.Subscribe(Topic("a"), a)
	cs.Subscribe(Topic("b"), b)

	msg := NewTypingEvent("alice")
	cs.Publish(Topic("a"), msg)

	select {
	case got := <-a.send:
		assert.Equal(t, msg, got)
	default:
		t.Fatal("expected subscriber of topic a to receive the message")
	}
	assert.Empty(t, b.send, "expected subscriber of topic b to receive nothing")

	cs.Unsubscribe(Topic("a"), a)
	assert.Equal(t, 0, cs.subscriberCount(Topic("a")))
	cs.Publish(Topic("a"), msg)
	assert.Empty(t, a.send)
}

func TestChatServerPublishSlowSubscriber(t *testing.T) {
	cs := newTestChatServer(t, newMockStats())

	c := &Client{send: make(chan *ServerMessage, 1)}
	cs.Subscribe(Topic("a"), c)

	cs.Publish(Topic("a"), NewTypingEvent("one"))
	cs.Publish(Topic("a"), NewTypingEvent("two"))

	assert.Len(t, c.send, 1, "expected the second message to be dropped rather than block")
}

func TestChatServerRegisterDeRegister(t *testing.T) {
	su := newMockStats()
	cs := newTestChatServer(t, su)
	go cs.Run()

	c := &Client{send: make(chan *ServerMessage, 1), stop: make(chan struct{})}
	cs.Register(c)
	cs.Subscribe(Topic("a"), c)
	cs.deRegister(c)

	assert.Eventually(t, func() bool {
		return cs.subscriberCount(Topic("a")) == 0
	}, time.Second, 10*time.Millisecond, "expected deregistered client to be unsubscribed")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, cs.Shutdown(ctx))

	su.AssertCalled(t, "Incr", stats.NumActiveClients)
	su.AssertCalled(t, "Decr", stats.NumActiveClients)
}

func TestChatServerShutdown(t *testing.T) {
	t.Run("stops clients", func(t *testing.T) {
		cs := newTestChatServer(t, newMockStats())
		go cs.Run()

		c := &Client{send: make(chan *ServerMessage, 1), stop: make(chan struct{})}
		cs.Register(c)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, cs.Shutdown(ctx))

		select {
		case <-c.stop:
		default:
			t.Error("expected client stop channel to be closed")
		}

		// registering after shutdown must not block
		late := &Client{stop: make(chan struct{})}
		cs.Register(late)
		select {
		case <-late.stop:
		default:
			t.Error("expected late client to be stopped")
		}
	})

	t.Run("context expires", func(t *testing.T) {
		cs := newTestChatServer(t, newMockStats())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, cs.Shutdown(ctx), context.DeadlineExceeded)
	})
}
