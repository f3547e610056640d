package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dmchat/internal/database"
	"dmchat/internal/presence"
	"dmchat/internal/stats"
	"dmchat/internal/testutil"
)

func TestNewClient(t *testing.T) {
	cs := newTestChatServer(t, &database.MockRepository{})
	c := NewClient(database.User{Id: 1, Username: "alice"}, nil, cs, testutil.TestLogger(t))

	assert.NotEmpty(t, c.id, "expected a connection id")
	assert.Equal(t, 1, c.user.Id, "expected the user to be set")
	assert.NotNil(t, c.send, "expected the send queue to be initialized")
	assert.NotNil(t, c.stop, "expected the stop channel to be initialized")
}

func TestClientIdsAreUnique(t *testing.T) {
	cs := newTestChatServer(t, &database.MockRepository{})
	c1 := NewClient(database.User{Id: 1, Username: "alice"}, nil, cs, testutil.TestLogger(t))
	c2 := NewClient(database.User{Id: 1, Username: "alice"}, nil, cs, testutil.TestLogger(t))

	assert.NotEqual(t, c1.id, c2.id, "expected distinct connection ids for the same user")
}

func TestQueueMessage(t *testing.T) {
	cs := newTestChatServer(t, &database.MockRepository{})
	c := NewClient(database.User{Id: 1, Username: "alice"}, nil, cs, testutil.TestLogger(t))

	ok := c.queueMessage(UserOnlineEvent(2))
	assert.True(t, ok, "expected the event to be queued")

	evs := drainEvents(c)
	assert.Len(t, evs, 1, "expected the queued event to be readable")
	assert.NotNil(t, evs[0].UserStatus, "expected the queued user_status event")
}

func TestQueueMessageDropsWhenFull(t *testing.T) {
	cs, err := NewChatServer(testutil.TestLogger(t), &database.MockRepository{}, presence.NewRegistry(), stats.NopStatsProvider{}, nil)
	assert.NoError(t, err, "expected no error creating ChatServer")

	c := NewClient(database.User{Id: 1, Username: "alice"}, nil, cs, testutil.TestLogger(t))

	for i := 0; i < cap(c.send); i++ {
		assert.True(t, c.queueMessage(UserOnlineEvent(2)), "expected event %d to be queued", i)
	}

	assert.False(t, c.queueMessage(UserOnlineEvent(2)), "expected the event to be dropped when the queue is full")
}
