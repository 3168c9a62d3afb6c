package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"concentrese/internal/concentrese/game"
)

func TestHubBroadcastsEvents(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	defer conn.Close()

	// The subscription registers asynchronously after the handshake.
	time.Sleep(100 * time.Millisecond)

	hub.Publish(game.Event{Type: game.EventPairFound, Player: "ana", PairsFound: 3, TotalPairs: 20})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading event: %v", err)
	}

	var e game.Event
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("decoding event %q: %v", data, err)
	}
	if e.Type != game.EventPairFound || e.Player != "ana" || e.PairsFound != 3 {
		t.Errorf("event = %+v", e)
	}
}

func TestHubPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(game.Event{Type: game.EventTurnChanged, Turn: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with no subscribers")
	}
}
