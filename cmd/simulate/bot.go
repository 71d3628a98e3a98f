package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Frame is a server event as seen by a bot.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Bot is a scripted websocket client
type Bot struct {
	Name     string
	PublicID string
	ConnID   string
	LocalID  string
	Score    int

	conn   *websocket.Conn
	frames chan Frame
	done   chan struct{}

	mu       sync.Mutex
	received map[string]int
}

// Dial connects a bot to the websocket endpoint at url.
func Dial(ctx context.Context, url, name string) (*Bot, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", name, err)
	}

	b := &Bot{
		Name:     name,
		PublicID: uuid.NewString(),
		conn:     conn,
		frames:   make(chan Frame, 256),
		done:     make(chan struct{}),
		received: make(map[string]int),
	}
	go b.readLoop()
	return b, nil
}

func (b *Bot) readLoop() {
	defer close(b.done)
	for {
		var f Frame
		if err := b.conn.ReadJSON(&f); err != nil {
			return
		}

		b.mu.Lock()
		b.received[f.Event]++
		b.mu.Unlock()

		select {
		case b.frames <- f:
		default:
			// buffer full; the frame is only counted
		}
	}
}

// Send writes one event.
func (b *Bot) Send(event string, data any) error {
	return b.conn.WriteJSON(map[string]any{"event": event, "data": data})
}

// Await returns the data of the next frame named event, skipping others.
func (b *Bot) Await(ctx context.Context, event string) (json.RawMessage, error) {
	for {
		select {
		case f := <-b.frames:
			if f.Event == event {
				return f.Data, nil
			}
		case <-b.done:
			return nil, fmt.Errorf("%s: connection closed while waiting for %s", b.Name, event)
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: waiting for %s: %w", b.Name, event, ctx.Err())
		}
	}
}

// Join sends join_app and records the connection id the server assigned.
func (b *Bot) Join(ctx context.Context) error {
	if err := b.Send("join_app", map[string]string{"id": b.PublicID, "name": b.Name}); err != nil {
		return err
	}
	data, err := b.Await(ctx, "app_joined")
	if err != nil {
		return err
	}

	var sess struct {
		ConnectionID string `json:"connectionId"`
	}
	if err := json.Unmarshal(data, &sess); err != nil {
		return fmt.Errorf("%s: decode app_joined: %w", b.Name, err)
	}
	b.ConnID = sess.ConnectionID
	return nil
}

// CheckIn enters localID and returns the roster size.
func (b *Bot) CheckIn(ctx context.Context, localID string) (int, error) {
	if err := b.Send("check_in", localID); err != nil {
		return 0, err
	}
	data, err := b.Await(ctx, "room_users")
	if err != nil {
		return 0, err
	}

	var roster []json.RawMessage
	if err := json.Unmarshal(data, &roster); err != nil {
		return 0, fmt.Errorf("%s: decode room_users: %w", b.Name, err)
	}
	b.LocalID = localID
	return len(roster), nil
}

// Received returns how many frames named event arrived so far.
func (b *Bot) Received(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.received[event]
}

// Close disconnects the bot.
func (b *Bot) Close() error {
	err := b.conn.Close()
	<-b.done
	return err
}
