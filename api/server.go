package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"
	"github.com/wricardo/socialspot/places"
	"github.com/wricardo/socialspot/room/content"
	"github.com/wricardo/socialspot/room/router"
	"github.com/wricardo/socialspot/room/session"
	"github.com/wricardo/socialspot/transport/websocket"
)

// qrSize is the edge length of generated QR codes in pixels.
const qrSize = 320

// RoomReader exposes read-only room snapshots; *router.Router implements it.
type RoomReader interface {
	Rooms() []session.RoomSummary
	Room(localID string) router.RoomView
	Stats() router.Stats
}

// Catalog describes the loaded content pack; *content.Manager implements it.
type Catalog interface {
	Catalog() []content.PoolInfo
	Source() string
}

// PlaceFinder answers venue searches; *places.Finder implements it.
type PlaceFinder interface {
	Find(ctx context.Context, q places.Query) []places.Local
}

// Config holds optional server settings.
type Config struct {
	// StaticDir is served at / with an index.html fallback. Empty disables it.
	StaticDir string

	// PublicURL is the base of links encoded in QR codes. Empty derives it
	// from the request.
	PublicURL string
}

// Server represents the REST API server
type Server struct {
	rooms   RoomReader
	catalog Catalog
	places  PlaceFinder
	hub     *websocket.Hub
	cfg     Config
	logger  *slog.Logger
	router  *mux.Router
	handler http.Handler
}

// NewServer creates a new API server. hub may be nil, in which case /ws
// answers 503.
func NewServer(rooms RoomReader, catalog Catalog, finder PlaceFinder, hub *websocket.Hub, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		rooms:   rooms,
		catalog: catalog,
		places:  finder,
		hub:     hub,
		cfg:     cfg,
		logger:  logger,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	s.handler = cors.AllowAll().Handler(s.router)
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Venues
	api.HandleFunc("/locals", s.handleListLocals).Methods("GET")

	// Rooms
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{localId}", s.handleGetRoom).Methods("GET")
	api.HandleFunc("/rooms/{localId}/qr", s.handleRoomQR).Methods("GET")

	// Content
	api.HandleFunc("/games", s.handleGameCatalog).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	if s.cfg.StaticDir != "" {
		s.router.PathPrefix("/").Handler(spaHandler{dir: s.cfg.StaticDir})
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Venue Handlers

func (s *Server) handleListLocals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := places.Query{Search: strings.TrimSpace(query.Get("search"))}

	latStr, lngStr := query.Get("lat"), query.Get("lng")
	if latStr != "" || lngStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil {
			respondError(w, http.StatusBadRequest, "lat and lng must both be valid numbers")
			return
		}
		q.Lat, q.Lng, q.HasCoords = lat, lng, true
	}

	respondJSON(w, http.StatusOK, s.places.Find(r.Context(), q))
}

// Room Handlers

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.rooms.Rooms())
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	localID := mux.Vars(r)["localId"]
	respondJSON(w, http.StatusOK, s.rooms.Room(localID))
}

func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	localID := mux.Vars(r)["localId"]

	link := s.baseURL(r) + "/?local=" + url.QueryEscape(localID)
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		s.logger.Error("qr generation failed", "local", localID, "error", err)
		respondError(w, http.StatusInternalServerError, "qr generation failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// baseURL prefers the configured public URL and otherwise derives one from
// the request, honoring X-Forwarded-Proto.
func (s *Server) baseURL(r *http.Request) string {
	if s.cfg.PublicURL != "" {
		return strings.TrimSuffix(s.cfg.PublicURL, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// Content Handlers

func (s *Server) handleGameCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"source": s.catalog.Source(),
		"pools":  s.catalog.Catalog(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "websocket transport not available")
		return
	}
	s.hub.ServeWS(w, r)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	clients := 0
	if s.hub != nil {
		clients = s.hub.Clients()
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"clients": clients,
		"stats":   s.rooms.Stats(),
	})
}

// spaHandler serves files from dir and falls back to index.html so client
// side routes resolve.
type spaHandler struct {
	dir string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := filepath.Join(h.dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
	if info, err := os.Stat(name); err != nil || info.IsDir() {
		http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
		return
	}
	http.FileServer(http.Dir(h.dir)).ServeHTTP(w, r)
}
