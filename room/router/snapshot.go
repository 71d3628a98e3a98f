package router

import (
	"time"

	"github.com/wricardo/socialspot/room/games"
	"github.com/wricardo/socialspot/room/session"
)

// RoomView is a read-only snapshot of one local.
type RoomView struct {
	LocalID string                `json:"localId"`
	Users   []session.UserSession `json:"users"`
	Game    *GameView             `json:"game,omitempty"`
}

// GameView exposes a game slot without its correct answer.
type GameView struct {
	Kind      games.Kind `json:"kind"`
	Active    bool       `json:"active"`
	StartedAt time.Time  `json:"startedAt"`
}

// Stats summarises the router state.
type Stats struct {
	Connections int `json:"connections"`
	Sessions    int `json:"sessions"`
	Rooms       int `json:"rooms"`
	Games       int `json:"games"`
}

// Rooms lists every occupied local.
func (r *Router) Rooms() []session.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Rooms()
}

// Room returns the roster and game slot of localID. Locals nobody has checked
// in to yield an empty roster.
func (r *Router) Room(localID string) RoomView {
	r.mu.Lock()
	defer r.mu.Unlock()

	view := RoomView{
		LocalID: localID,
		Users:   r.store.Members(localID),
	}
	if g, ok := r.table.Get(localID); ok {
		view.Game = &GameView{Kind: g.Kind, Active: g.Active, StartedAt: g.StartedAt}
	}
	return view
}

// Stats returns connection, session, room and game counts.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, sessions := r.store.Count()
	return Stats{
		Connections: conns,
		Sessions:    sessions,
		Rooms:       len(r.store.Rooms()),
		Games:       r.table.Count(),
	}
}
