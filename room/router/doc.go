// Package router is the single entry point for client events in SocialSpot.
//
// The router package implements:
//   - A closed set of inbound and outbound event kinds
//   - A lookup table from inbound kind to handler
//   - The check-in protocol (room_users to the joiner, user_entered to the room)
//   - Stateless invite, interaction and private chat relays
//   - The per-local mini-game flow (start_game, answer_quiz, score_update)
//   - Disconnect handling (user_left to the remaining members)
//
// Error Policy:
//
// Nothing a client sends can make a handler fail. Events from connections
// without a session, relays to unknown connections, quiz answers without an
// active quiz and malformed payloads are all dropped and logged at debug
// level. A panicking handler is recovered and logged.
//
// Concurrency:
//
// Each top-level call (Connect, Disconnect, Dispatch, HandleFrame) runs to
// completion under the router lock, so state is never observed half-updated.
// Emitters are called while the lock is held and must not block or call back
// into the router.
//
// Usage:
//
//	r := router.New(session.NewStore(), games.NewTable(), deck, emitter)
//	r.Connect(connID)
//	r.HandleFrame(connID, []byte(`{"event":"join_app","data":{"id":"u1","name":"Ana"}}`))
//	r.Disconnect(connID)
package router
