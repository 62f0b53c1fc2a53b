package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dispatchsim/core/sim"
	"github.com/kilianp07/dispatchsim/internal/eventbus"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubFollowBroadcastsEvents(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 10*time.Millisecond)

	bus := eventbus.New[sim.Event](8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := hub.Follow(ctx, bus)
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	bus.Publish(sim.Event{Kind: sim.TaskServiced, RunID: "r1", TaskID: 3, Wait: 1.5})

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var ev sim.Event
		require.NoError(t, conn.ReadJSON(&ev))
		require.Equal(t, sim.TaskServiced, ev.Kind)
		require.Equal(t, 3, ev.TaskID)
		require.Equal(t, 1.5, ev.Wait)
	}

	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("follow did not stop on bus close")
	}
}

func TestHubFollowStopsOnCancel(t *testing.T) {
	hub := NewHub()
	bus := eventbus.New[sim.Event](1)
	ctx, cancel := context.WithCancel(context.Background())
	done := hub.Follow(ctx, bus)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("follow did not stop on cancel")
	}
	require.Equal(t, 0, bus.Subscribers())
}

func TestHubDropsDisconnectedClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Broadcast(map[string]int{"x": 1}))
}

func TestHubClosedRejectsClients(t *testing.T) {
	hub := NewHub()
	hub.Close()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	require.Equal(t, 0, hub.Clients())
}
