package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/socialspot/room/games"
	"github.com/wricardo/socialspot/room/router"
	"github.com/wricardo/socialspot/room/session"
)

// recordingHandler logs every call in order.
type recordingHandler struct {
	mu    sync.Mutex
	calls []string
	panic bool
}

func (h *recordingHandler) record(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, s)
}

func (h *recordingHandler) Connect(connID string)    { h.record("connect") }
func (h *recordingHandler) Disconnect(connID string) { h.record("disconnect") }
func (h *recordingHandler) HandleFrame(connID string, frame []byte) {
	h.record("frame:" + string(frame))
	if h.panic {
		panic("boom")
	}
}

func (h *recordingHandler) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

type staticDeck struct{ pack *games.Pack }

func (d staticDeck) Pack() *games.Pack { return d.pack }

type firstPicker struct{}

func (firstPicker) Intn(int) int { return 0 }

func testPack() *games.Pack {
	return &games.Pack{
		Quiz:           []games.Question{{Text: "Capital of France?", Options: []string{"London", "Berlin", "Paris"}, Correct: 2}},
		TruthDare:      []string{"Truth: biggest fear?"},
		NeverHaveIEver: []string{"Never have I ever sung karaoke."},
	}
}

func startHub(t *testing.T, handler func(*Hub) EventHandler) (*Hub, string) {
	t.Helper()

	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	h := handler(hub)
	done := make(chan struct{})
	go func() {
		hub.Run(ctx, h)
		close(done)
	}()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		cancel()
		<-done
		server.Close()
	})

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"event": event, "data": data}); err != nil {
		t.Fatalf("Failed to write %s: %v", event, err)
	}
}

type received struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// expectEvent reads frames until one named event arrives.
func expectEvent(t *testing.T, conn *websocket.Conn, event string) received {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Waiting for %s: %v", event, err)
		}
		var msg received
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to unmarshal frame %q: %v", data, err)
		}
		if msg.Event == event {
			return msg
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}
	if hub.inbound == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels are nil")
	}
	if hub.logger == nil {
		t.Error("Hub logger is nil")
	}
}

func TestHubEmit(t *testing.T) {
	hub := NewHub(nil)
	client := &Client{hub: hub, id: "c1", send: make(chan []byte, 1)}
	hub.registerClient(client)

	hub.Emit("c1", router.ScoreUpdate, 10)
	hub.Emit("unknown", router.ScoreUpdate, 10)

	select {
	case data := <-client.send:
		var frame received
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("Failed to unmarshal frame: %v", err)
		}
		if frame.Event != "score_update" || string(frame.Data) != "10" {
			t.Errorf("Expected score_update 10, got %s %s", frame.Event, frame.Data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No frame received within timeout")
	}
}

func TestHubEmitDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	client := &Client{hub: hub, id: "slow", send: make(chan []byte, 1)}
	hub.registerClient(client)

	hub.Emit("slow", router.ScoreUpdate, 10)
	hub.Emit("slow", router.ScoreUpdate, 20)

	if hub.Clients() != 0 {
		t.Errorf("Expected slow client to be dropped, got %d clients", hub.Clients())
	}

	<-client.send
	if _, ok := <-client.send; ok {
		t.Error("Expected send channel to be closed")
	}

	// a later unregister from the read pump must not close twice
	hub.unregisterClient(client)
}

func TestHubEventOrder(t *testing.T) {
	handler := &recordingHandler{}
	_, url := startHub(t, func(*Hub) EventHandler { return handler })

	conn := dial(t, url)
	conn.WriteMessage(websocket.TextMessage, []byte(`one`))
	conn.WriteMessage(websocket.TextMessage, []byte(`two`))
	conn.Close()

	waitFor(t, "disconnect", func() bool { return len(handler.snapshot()) == 4 })

	want := []string{"connect", "frame:one", "frame:two", "disconnect"}
	for i, call := range handler.snapshot() {
		if call != want[i] {
			t.Errorf("Call %d: expected %s, got %s", i, want[i], call)
		}
	}
}

func TestHubRecoversFromPanickingHandler(t *testing.T) {
	handler := &recordingHandler{panic: true}
	hub, url := startHub(t, func(*Hub) EventHandler { return handler })

	conn := dial(t, url)
	conn.WriteMessage(websocket.TextMessage, []byte(`boom`))
	conn.WriteMessage(websocket.TextMessage, []byte(`again`))

	waitFor(t, "second frame", func() bool { return len(handler.snapshot()) == 3 })
	if hub.Clients() != 1 {
		t.Errorf("Expected client to survive, got %d clients", hub.Clients())
	}
}

func TestHubRunStopsOnCancel(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{hub: hub, id: "c1", send: make(chan []byte, 1)}
	hub.registerClient(client)

	errCh := make(chan error, 1)
	go func() { errCh <- hub.Run(ctx, &recordingHandler{}) }()
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Expected nil error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, ok := <-client.send; ok {
		t.Error("Expected client channel to be closed on shutdown")
	}
}

func TestHubRoomFlow(t *testing.T) {
	var store *session.Store
	_, url := startHub(t, func(h *Hub) EventHandler {
		store = session.NewStore()
		return router.New(store, games.NewTable(), staticDeck{testPack()}, h, router.WithPicker(firstPicker{}))
	})

	ana := dial(t, url)
	bo := dial(t, url)

	sendEvent(t, ana, "join_app", map[string]string{"id": "ua", "name": "Ana"})
	joined := expectEvent(t, ana, "app_joined")
	var anaSession session.UserSession
	json.Unmarshal(joined.Data, &anaSession)
	if anaSession.ConnectionID == "" || anaSession.Name != "Ana" {
		t.Fatalf("Unexpected app_joined payload: %s", joined.Data)
	}
	sendEvent(t, ana, "check_in", "1")
	expectEvent(t, ana, "room_users")

	sendEvent(t, bo, "join_app", map[string]string{"id": "ub", "name": "Bo"})
	expectEvent(t, bo, "app_joined")
	sendEvent(t, bo, "check_in", map[string]string{"localId": "1"})

	t.Run("roster and user_entered", func(t *testing.T) {
		var roster []session.UserSession
		json.Unmarshal(expectEvent(t, bo, "room_users").Data, &roster)
		if len(roster) != 2 || roster[0].Name != "Ana" || roster[1].Name != "Bo" {
			t.Errorf("Expected roster [Ana Bo], got %+v", roster)
		}

		var entered session.UserSession
		json.Unmarshal(expectEvent(t, ana, "user_entered").Data, &entered)
		if entered.Name != "Bo" || entered.LocalID != "1" {
			t.Errorf("Expected Bo to enter local 1, got %+v", entered)
		}
	})

	t.Run("quiz round", func(t *testing.T) {
		sendEvent(t, ana, "start_game", map[string]string{"localId": "1", "kind": "quiz"})
		for _, conn := range []*websocket.Conn{ana, bo} {
			var content games.Content
			json.Unmarshal(expectEvent(t, conn, "game_started").Data, &content)
			if content.Kind != games.KindQuiz || content.Text != "Capital of France?" {
				t.Errorf("Unexpected game content: %+v", content)
			}
		}

		sendEvent(t, bo, "answer_quiz", map[string]any{"localId": "1", "answerIndex": 2})
		if score := expectEvent(t, bo, "score_update"); string(score.Data) != "10" {
			t.Errorf("Expected score 10, got %s", score.Data)
		}
	})

	t.Run("private message", func(t *testing.T) {
		sendEvent(t, bo, "private_message", map[string]string{"toConnectionId": anaSession.ConnectionID, "message": "hola"})
		var msg router.PrivateMessagePayload
		json.Unmarshal(expectEvent(t, ana, "receive_private_message").Data, &msg)
		if msg.FromID != "ub" || msg.Message != "hola" || msg.Timestamp.IsZero() {
			t.Errorf("Unexpected private message: %+v", msg)
		}
	})

	t.Run("disconnect", func(t *testing.T) {
		ana.Close()
		left := expectEvent(t, bo, "user_left")
		if string(left.Data) != `"ua"` {
			t.Errorf("Expected user_left \"ua\", got %s", left.Data)
		}
		waitFor(t, "session removal", func() bool {
			_, sessions := store.Count()
			return sessions == 1
		})
	})
}
