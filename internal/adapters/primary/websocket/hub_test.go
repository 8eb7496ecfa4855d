package websocket

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/ohq-statistics/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func newTestClient(hub *Hub) *Client {
	return NewClient(hub, nil, uuid.New(), time.Minute, 0, hub.logger)
}

func receive(t *testing.T, c *Client) domain.Event {
	t.Helper()
	select {
	case event, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return domain.Event{}
	}
}

func assertNothingQueued(t *testing.T, c *Client) {
	t.Helper()
	select {
	case event := <-c.Send:
		t.Fatalf("unexpected event %s", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RoutesByCourse(t *testing.T) {
	hub, _ := newTestHub(t)
	following := newTestClient(hub)
	other := newTestClient(hub)
	require.True(t, hub.Join(following))
	require.True(t, hub.Join(other))

	hub.subscribe(following, 7)
	hub.subscribe(other, 8)

	require.NoError(t, hub.Broadcast(domain.Event{Type: domain.EventStatisticsUpdated, CourseID: 7}))

	assert.Equal(t, int64(7), receive(t, following).CourseID)
	assertNothingQueued(t, other)
}

func TestHub_UnscopedEventsReachEveryone(t *testing.T) {
	hub, _ := newTestHub(t)
	a := newTestClient(hub)
	b := newTestClient(hub)
	require.True(t, hub.Join(a))
	require.True(t, hub.Join(b))

	require.NoError(t, hub.Broadcast(domain.Event{Type: domain.EventJobCompleted}))

	assert.Equal(t, domain.EventJobCompleted, receive(t, a).Type)
	assert.Equal(t, domain.EventJobCompleted, receive(t, b).Type)
}

func TestHub_UnsubscribeAndLeave(t *testing.T) {
	hub, _ := newTestHub(t)
	c := newTestClient(hub)
	require.True(t, hub.Join(c))

	hub.subscribe(c, 3)
	hub.subscribe(c, 4)
	assert.ElementsMatch(t, []int64{3, 4}, c.Subscriptions())

	hub.unsubscribe(c, 3)
	assert.Equal(t, 0, hub.ClientsInRoom(3))
	assert.Equal(t, 1, hub.ClientsInRoom(4))

	hub.leaveHub(c)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.ClientsInRoom(4))

	_, ok := <-c.Send
	assert.False(t, ok)
}

func TestHub_SubscribeRequiresJoin(t *testing.T) {
	hub, _ := newTestHub(t)
	c := newTestClient(hub)

	hub.subscribe(c, 3)

	assert.Equal(t, 0, hub.ClientsInRoom(3))
}

func TestHub_Stop(t *testing.T) {
	hub, cancel := newTestHub(t)
	c := newTestClient(hub)
	require.True(t, hub.Join(c))

	cancel()
	<-hub.done

	_, ok := <-c.Send
	assert.False(t, ok)
	assert.False(t, hub.Join(newTestClient(hub)))
	hub.leaveHub(c)
}
