package session

import (
	"sort"
	"sync"
)

// Profile is the client supplied part of a session.
type Profile struct {
	PublicID string
	Name     string
	Avatar   string
}

// UserSession is the server-side record of one connected user.
type UserSession struct {
	ConnectionID string `json:"connectionId"`
	PublicID     string `json:"id"`
	Name         string `json:"name"`
	Avatar       string `json:"avatar"`
	LocalID      string `json:"localId,omitempty"`
	Score        int    `json:"score"`

	seq uint64
}

// RoomSummary describes an occupied local.
type RoomSummary struct {
	LocalID string `json:"localId"`
	Members int    `json:"members"`
}

// Store is the connection registry and room directory
type Store struct {
	conns    map[string]struct{}
	sessions map[string]*UserSession
	rooms    map[string]map[string]struct{}
	seq      uint64
	mu       sync.RWMutex
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		conns:    make(map[string]struct{}),
		sessions: make(map[string]*UserSession),
		rooms:    make(map[string]map[string]struct{}),
	}
}

// Connect registers a bare connection with no session.
func (s *Store) Connect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[connID] = struct{}{}
}

// Connected reports whether connID is a live connection.
func (s *Store) Connected(connID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.conns[connID]
	return ok
}

// Join creates a fresh session for connID. A second join on the same
// connection replaces the session and silently drops its room membership.
func (s *Store) Join(connID string, p Profile) UserSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.sessions[connID]; ok && old.LocalID != "" {
		s.leaveLocked(connID, old.LocalID)
	}

	s.seq++
	sess := &UserSession{
		ConnectionID: connID,
		PublicID:     p.PublicID,
		Name:         p.Name,
		Avatar:       p.Avatar,
		seq:          s.seq,
	}
	s.conns[connID] = struct{}{}
	s.sessions[connID] = sess

	return *sess
}

// Get returns the session for connID.
func (s *Store) Get(connID string) (UserSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[connID]
	if !ok {
		return UserSession{}, false
	}
	return *sess, true
}

// CheckIn moves the session for connID into localID. It returns the local the
// session was in before (empty if none) and false when connID has no session.
func (s *Store) CheckIn(connID, localID string) (previous string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[connID]
	if !exists {
		return "", false
	}

	previous = sess.LocalID
	if previous != "" && previous != localID {
		s.leaveLocked(connID, previous)
	}

	sess.LocalID = localID
	if s.rooms[localID] == nil {
		s.rooms[localID] = make(map[string]struct{})
	}
	s.rooms[localID][connID] = struct{}{}

	return previous, true
}

// AddScore adds delta to the session score and returns the new total.
// Negative deltas are ignored so scores never decrease.
func (s *Store) AddScore(connID string, delta int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[connID]
	if !ok {
		return 0, false
	}
	if delta > 0 {
		sess.Score += delta
	}
	return sess.Score, true
}

// Disconnect removes the connection, its session and its room membership.
// The removed session is returned when there was one.
func (s *Store) Disconnect(connID string) (UserSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conns, connID)

	sess, ok := s.sessions[connID]
	if !ok {
		return UserSession{}, false
	}
	if sess.LocalID != "" {
		s.leaveLocked(connID, sess.LocalID)
	}
	delete(s.sessions, connID)

	return *sess, true
}

// Members returns the sessions checked in to localID in join order.
func (s *Store) Members(localID string) []UserSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room := s.rooms[localID]
	result := make([]UserSession, 0, len(room))
	for connID := range room {
		if sess, ok := s.sessions[connID]; ok {
			result = append(result, *sess)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].seq < result[j].seq
	})
	return result
}

// MemberIDs returns the connection ids checked in to localID.
func (s *Store) MemberIDs(localID string) []string {
	members := s.Members(localID)
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ConnectionID
	}
	return ids
}

// Rooms lists every occupied local ordered by id.
func (s *Store) Rooms() []RoomSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]RoomSummary, 0, len(s.rooms))
	for localID, members := range s.rooms {
		result = append(result, RoomSummary{LocalID: localID, Members: len(members)})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].LocalID < result[j].LocalID
	})
	return result
}

// Count returns the number of live connections and joined sessions.
func (s *Store) Count() (connections, sessions int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns), len(s.sessions)
}

// leaveLocked assumes s.mu is held for writing.
func (s *Store) leaveLocked(connID, localID string) {
	room, ok := s.rooms[localID]
	if !ok {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(s.rooms, localID)
	}
}
