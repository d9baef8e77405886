package server

import (
	"context"
	"database/sql"
	"testing"

	"github.com/npezzotti/go-chatrelay/internal/database"
	"github.com/npezzotti/go-chatrelay/internal/testutil"
	"github.com/npezzotti/go-chatrelay/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPreview(t *testing.T) {
	tcases := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "short", text: "hello", expected: "hello"},
		{name: "exactly twenty", text: "abcdefghijklmnopqrst", expected: "abcdefghijklmnopqrst"},
		{name: "twenty five", text: "abcdefghijklmnopqrstuvwxy", expected: "abcdefghijklmnopqrst..."},
		{name: "multibyte", text: "ééééééééééééééééééééé", expected: "éééééééééééééééééééé..."},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Preview(tc.text))
		})
	}
}

func newTestNotifier(t *testing.T, db database.ChatRepository) (*Notifier, *PresenceTracker, *recordingPublisher) {
	logger := testutil.TestLogger(t)
	presence := NewPresenceTracker()
	pub := &recordingPublisher{}
	return NewNotifier(NewRoomDirectory(db, logger), presence, pub, logger, newMockStats()), presence, pub
}

func TestNotifierNoOtherRooms(t *testing.T) {
	db := &database.MockChatRepository{}
	n, presence, pub := newTestNotifier(t, db)
	presence.Join("a", "alice")

	err := n.Notify(context.Background(), types.Message{RoomId: "a", Text: "hi"})
	assert.NoError(t, err)
	assert.Empty(t, pub.all())
	db.AssertNotCalled(t, "GetRoomById", mock.Anything, mock.Anything)
}

func TestNotifierEveryOtherRoom(t *testing.T) {
	db := &database.MockChatRepository{}
	defer db.AssertExpectations(t)
	n, presence, pub := newTestNotifier(t, db)

	db.On("GetRoomById", mock.Anything, "a").Return(database.Room{Id: "a", Name: "General"}, nil).Once()

	presence.Join("a", "alice")
	presence.Join("b", "bob")
	presence.Join("c", "carol")
	presence.Leave("c", "carol")

	err := n.Notify(context.Background(), types.Message{RoomId: "a", Text: "hi"})
	require.NoError(t, err)

	sent := pub.all()
	require.Len(t, sent, 2, "expected rooms with emptied presence to still be notified")
	assert.Equal(t, Topic("b"), sent[0].topic)
	assert.Equal(t, Topic("c"), sent[1].topic)
	for _, s := range sent {
		assert.Equal(t, NewNotificationEvent(Notification{RoomId: "a", RoomName: "General", Preview: "hi"}), s.msg)
	}
}

func TestNotifierRoomNotFound(t *testing.T) {
	db := &database.MockChatRepository{}
	defer db.AssertExpectations(t)
	n, presence, pub := newTestNotifier(t, db)

	db.On("GetRoomById", mock.Anything, "gone").Return(database.Room{}, sql.ErrNoRows).Once()
	presence.Join("b", "bob")

	err := n.Notify(context.Background(), types.Message{RoomId: "gone", Text: "hi"})
	assert.True(t, IsKind(err, KindNotFound))
	assert.Empty(t, pub.all())
}
