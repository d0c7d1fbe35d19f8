package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/models"
)

type fakeFeedConn struct {
	events    chan AppointmentEvent
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeFeedConn() *fakeFeedConn {
	return &fakeFeedConn{
		events: make(chan AppointmentEvent, 8),
		done:   make(chan struct{}),
	}
}

func (c *fakeFeedConn) ReadMessage() (int, []byte, error) {
	<-c.done
	return 0, nil, errors.New("connection closed")
}

func (c *fakeFeedConn) WriteJSON(v interface{}) error {
	event, ok := v.(AppointmentEvent)
	if !ok {
		return errors.New("unexpected payload")
	}
	c.events <- event
	return nil
}

func (c *fakeFeedConn) WriteMessage(int, []byte) error {
	return nil
}

func (c *fakeFeedConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func connectFeed(t *testing.T, feed LiveFeed, principal auth.Principal) *fakeFeedConn {
	t.Helper()
	before := feed.Connections()
	conn := newFakeFeedConn()
	go feed.ServeConnection(conn, principal)
	require.Eventually(t, func() bool { return feed.Connections() == before+1 }, time.Second, 5*time.Millisecond)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func receiveEvent(t *testing.T, conn *fakeFeedConn) AppointmentEvent {
	t.Helper()
	select {
	case event := <-conn.events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for appointment event")
		return AppointmentEvent{}
	}
}

func TestLiveFeedScopesEventsByPrincipal(t *testing.T) {
	feed := NewLiveFeed(nil, "", testLogger())

	staff := connectFeed(t, feed, auth.Principal{ID: 1, Kind: auth.KindAdmin, Role: models.RoleCounsellor})
	owner := connectFeed(t, feed, auth.Principal{ID: 7, Kind: auth.KindStudent, Role: models.RoleStudent})
	other := connectFeed(t, feed, auth.Principal{ID: 8, Kind: auth.KindStudent, Role: models.RoleStudent})

	feed.Deliver(AppointmentEvent{Type: "appointment.confirmed", AppointmentID: 3, StudentID: 7})

	require.Equal(t, uint(3), receiveEvent(t, staff).AppointmentID)
	require.Equal(t, uint(3), receiveEvent(t, owner).AppointmentID)
	select {
	case event := <-other.events:
		t.Fatalf("unexpected event for another student: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLiveFeedStudentDoesNotMatchStaffIDs(t *testing.T) {
	feed := NewLiveFeed(nil, "", testLogger())
	viewer := connectFeed(t, feed, auth.Principal{ID: 7, Kind: auth.KindAdmin, Role: "viewer"})

	feed.Deliver(AppointmentEvent{Type: "appointment.requested", AppointmentID: 1, StudentID: 7})

	select {
	case event := <-viewer.events:
		t.Fatalf("unexpected event: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLiveFeedUnregistersOnDisconnect(t *testing.T) {
	feed := NewLiveFeed(nil, "", testLogger())
	conn := connectFeed(t, feed, auth.Principal{ID: 1, Kind: auth.KindAdmin, Role: models.RoleAdmin})

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return feed.Connections() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLiveFeedFollowsRedisChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewLiveFeed(client, "school", testLogger())
	feed.Start(ctx)
	staff := connectFeed(t, feed, auth.Principal{ID: 1, Kind: auth.KindAdmin, Role: models.RoleAdmin})

	payload, err := json.Marshal(AppointmentEvent{Type: "appointment.cancelled", AppointmentID: 11, StudentID: 4})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return client.Publish(ctx, "school:appointments", payload).Val() > 0
	}, 2*time.Second, 10*time.Millisecond)

	event := receiveEvent(t, staff)
	require.Equal(t, "appointment.cancelled", event.Type)
	require.Equal(t, uint(11), event.AppointmentID)
}
