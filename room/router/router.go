package router

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/wricardo/socialspot/room/games"
	"github.com/wricardo/socialspot/room/session"
)

// Emitter delivers an outbound event to one connection. Implementations must
// not block and must silently drop events for unknown connections.
type Emitter interface {
	Emit(connID string, event Outbound, payload any)
}

// Deck supplies the content pack used to deal game rounds.
type Deck interface {
	Pack() *games.Pack
}

type handlerFunc func(r *Router, connID string, data json.RawMessage)

// handlers is the dispatch table; every Inbound kind must have an entry.
var handlers = map[Inbound]handlerFunc{
	JoinApp:         (*Router).handleJoinApp,
	CheckIn:         (*Router).handleCheckIn,
	SendInteraction: relayInvite(SendInteraction, ReceiveInteraction),
	SendInvite:      relayInvite(SendInvite, ReceiveInvite),
	AnswerInvite:    (*Router).handleAnswerInvite,
	PrivateMessage:  (*Router).handlePrivateMessage,
	StartGame:       (*Router).handleStartGame,
	AnswerQuiz:      (*Router).handleAnswerQuiz,
}

// Router dispatches client events against the injected state containers
type Router struct {
	store  *session.Store
	table  *games.Table
	deck   Deck
	emit   Emitter
	picker games.Picker
	now    func() time.Time
	logger *slog.Logger
	mu     sync.Mutex
}

// Option configures a Router.
type Option func(*Router)

// WithPicker overrides the random source used to deal rounds.
func WithPicker(p games.Picker) Option {
	return func(r *Router) { r.picker = p }
}

// WithClock overrides the clock used to stamp private messages.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New creates a router over store and table.
func New(store *session.Store, table *games.Table, deck Deck, emit Emitter, opts ...Option) *Router {
	r := &Router{
		store:  store,
		table:  table,
		deck:   deck,
		emit:   emit,
		picker: games.RandomPicker(),
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect registers a new connection.
func (r *Router) Connect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store.Connect(connID)
	r.logger.Debug("connection opened", "conn", connID)
}

// Disconnect removes the connection and tells its room, if any.
func (r *Router) Disconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.store.Disconnect(connID)
	if !ok {
		r.logger.Debug("connection closed", "conn", connID)
		return
	}

	if sess.LocalID != "" {
		r.broadcast(sess.LocalID, UserLeft, sess.PublicID)
	}
	r.logger.Info("user disconnected", "conn", connID, "name", sess.Name, "local", sess.LocalID)
}

// HandleFrame decodes a wire envelope and dispatches it.
func (r *Router) HandleFrame(connID string, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		r.logger.Debug("dropping malformed frame", "conn", connID, "error", err)
		return
	}
	r.Dispatch(connID, env.Event, env.Data)
}

// Dispatch runs the handler for event. Unknown events are dropped.
func (r *Router) Dispatch(connID, event string, data json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("event handler panicked", "conn", connID, "event", event, "panic", p)
		}
	}()

	r.logger.Debug("event received", "conn", connID, "event", event, "bytes", len(data))

	h, ok := handlers[Inbound(event)]
	if !ok {
		r.logger.Debug("dropping unknown event", "conn", connID, "event", event)
		return
	}
	h(r, connID, data)
}

// session resolves the sender; a missing session means the event is dropped.
func (r *Router) session(connID string, event Inbound) (session.UserSession, bool) {
	sess, ok := r.store.Get(connID)
	if !ok {
		r.logger.Debug("dropping event without session", "conn", connID, "event", event)
	}
	return sess, ok
}

// broadcast emits to every member of localID.
func (r *Router) broadcast(localID string, event Outbound, payload any) {
	for _, id := range r.store.MemberIDs(localID) {
		r.emit.Emit(id, event, payload)
	}
}

func (r *Router) handleJoinApp(connID string, data json.RawMessage) {
	f := decodeFields(data)
	sess := r.store.Join(connID, session.Profile{
		PublicID: f.str("id", "publicId"),
		Name:     f.str("name"),
		Avatar:   f.str("avatar"),
	})

	r.emit.Emit(connID, AppJoined, sess)
	r.logger.Info("user joined", "conn", connID, "name", sess.Name)
}

func (r *Router) handleCheckIn(connID string, data json.RawMessage) {
	sess, ok := r.session(connID, CheckIn)
	if !ok {
		return
	}

	localID := localIDFrom(data)
	if localID == "" {
		r.logger.Debug("dropping check-in without local", "conn", connID)
		return
	}

	// The previous room is left without a user_left notification; only a
	// disconnect announces departures.
	previous, _ := r.store.CheckIn(connID, localID)
	sess.LocalID = localID

	for _, id := range r.store.MemberIDs(localID) {
		if id != connID {
			r.emit.Emit(id, UserEntered, sess)
		}
	}
	r.emit.Emit(connID, RoomUsers, r.store.Members(localID))

	r.logger.Info("user checked in", "conn", connID, "name", sess.Name, "local", localID, "previous", previous)
}

func relayInvite(in Inbound, out Outbound) handlerFunc {
	return func(r *Router, connID string, data json.RawMessage) {
		from, ok := r.session(connID, in)
		if !ok {
			return
		}

		f := decodeFields(data)
		target := f.str("toConnectionId", "toSocketId")
		if !r.targetExists(connID, target) {
			return
		}

		r.emit.Emit(target, out, InvitePayload{
			From: from,
			Kind: f.str("kind", "type"),
		})
	}
}

func (r *Router) handleAnswerInvite(connID string, data json.RawMessage) {
	from, ok := r.session(connID, AnswerInvite)
	if !ok {
		return
	}

	f := decodeFields(data)
	target := f.str("toConnectionId", "toSocketId")
	if !r.targetExists(connID, target) {
		return
	}

	r.emit.Emit(target, InviteAnswered, InviteAnswerPayload{
		From:     from,
		Accepted: f.boolean("accepted"),
		Kind:     f.str("kind", "type"),
	})
}

func (r *Router) handlePrivateMessage(connID string, data json.RawMessage) {
	from, ok := r.session(connID, PrivateMessage)
	if !ok {
		return
	}

	f := decodeFields(data)
	target := f.str("toConnectionId", "toSocketId")
	if !r.targetExists(connID, target) {
		return
	}

	r.emit.Emit(target, ReceivePrivateMessage, PrivateMessagePayload{
		FromID:           from.PublicID,
		FromConnectionID: connID,
		Message:          f.str("message"),
		Timestamp:        r.now().UTC(),
	})
}

func (r *Router) targetExists(connID, target string) bool {
	if target == "" || !r.store.Connected(target) {
		r.logger.Debug("dropping relay to unknown connection", "conn", connID, "target", target)
		return false
	}
	return true
}

func (r *Router) handleStartGame(connID string, data json.RawMessage) {
	if _, ok := r.session(connID, StartGame); !ok {
		return
	}

	f := decodeFields(data)
	localID := f.str("localId")
	kind, ok := games.ParseKind(f.str("kind", "gameType"))
	if localID == "" || !ok {
		r.logger.Debug("dropping invalid start_game", "conn", connID, "local", localID)
		return
	}

	content, err := games.Deal(r.deck.Pack(), kind, r.picker)
	if err != nil {
		r.logger.Warn("failed to deal game round", "local", localID, "kind", kind, "error", err)
		return
	}

	r.table.Start(localID, content)
	r.broadcast(localID, GameStarted, content)

	r.logger.Info("game started", "conn", connID, "local", localID, "kind", kind)
}

func (r *Router) handleAnswerQuiz(connID string, data json.RawMessage) {
	if _, ok := r.session(connID, AnswerQuiz); !ok {
		return
	}

	f := decodeFields(data)
	localID := f.str("localId")
	answer, ok := f.integer("answerIndex")
	if localID == "" || !ok {
		r.logger.Debug("dropping invalid answer_quiz", "conn", connID)
		return
	}

	correct, active := r.table.CheckAnswer(localID, answer)
	if !active {
		r.logger.Debug("dropping answer without active quiz", "conn", connID, "local", localID)
		return
	}
	if !correct {
		return
	}

	score, ok := r.store.AddScore(connID, games.QuizReward)
	if !ok {
		return
	}
	r.emit.Emit(connID, ScoreUpdate, score)
}
