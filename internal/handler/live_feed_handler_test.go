package handler_test

import (
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counseling-api/internal/service"
)

func startListener(t *testing.T, server *testServer) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := server.app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	t.Cleanup(func() {
		_ = server.app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	})

	return "ws://" + listener.Addr().String()
}

func TestLiveFeedStreamsAppointmentEvents(t *testing.T) {
	server := newTestServer(t)
	adminToken := server.adminToken(t)
	studentToken := server.signupStudent(t, "Asha Rao", "asha@school.edu")
	baseURL := startListener(t, server)

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, resp, err := dialer.Dial(baseURL+"/api/live/appointments?access_token="+adminToken, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return server.feed.Connections() == 1 }, 2*time.Second, 10*time.Millisecond)

	id := server.requestAppointment(t, studentToken)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var event service.AppointmentEvent
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, "appointment.requested", event.Type)
	require.Equal(t, id, event.AppointmentID)
	require.Equal(t, "Pending", event.Status)
}

func TestLiveFeedRejectsAnonymousClients(t *testing.T) {
	server := newTestServer(t)
	baseURL := startListener(t, server)

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	_, resp, err := dialer.Dial(baseURL+"/api/live/appointments", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dialer.Dial(baseURL+"/api/live/appointments?access_token=forged", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
