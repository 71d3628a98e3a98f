// Package session provides the connection registry and room directory for
// SocialSpot.
//
// The session package implements:
//   - Thread-safe registration of live connections
//   - One UserSession per connection, created on join and destroyed on disconnect
//   - Explicit per-local membership sets kept in lock-step with each session
//   - Score bookkeeping for quiz rewards
//
// Core Types:
//
// Store owns every map. UserSession is the server-side record of one user for
// the lifetime of one connection; callers always receive copies.
//
// Invariants:
//
// A session is a member of at most one room, and the membership set of a local
// is exactly the set of sessions whose LocalID equals that local. Checking in
// to a new local removes the session from the previous one first.
//
// Usage:
//
//	store := session.NewStore()
//	store.Connect(connID)
//	sess := store.Join(connID, session.Profile{PublicID: "u1", Name: "Ana"})
//	prev, ok := store.CheckIn(connID, "local-1")
//	roster := store.Members("local-1")
//	left, ok := store.Disconnect(connID)
package session
