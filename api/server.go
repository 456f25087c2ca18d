package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/flipmatch/flipmatch/game/engine"
	"github.com/flipmatch/flipmatch/game/service"
	"github.com/flipmatch/flipmatch/game/session"
	"github.com/flipmatch/flipmatch/game/themes"
	"github.com/flipmatch/flipmatch/transport/websocket"
)

// Server represents the REST API server.
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger zerolog.Logger) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Game sessions
	api.HandleFunc("/games", s.handleCreateGame).Methods("POST")
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games/{id}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/games/{id}/join", s.handleJoinGame).Methods("POST")
	api.HandleFunc("/games/{id}/replay", s.handleReplayGame).Methods("POST")

	// Theme catalog
	api.HandleFunc("/themes", s.handleListThemes).Methods("GET")
	api.HandleFunc("/themes", s.handleCreateTheme).Methods("POST")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
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

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidParameters),
		errors.Is(err, engine.ErrInsufficientThemeValues),
		errors.Is(err, themes.ErrThemeNotFound),
		errors.Is(err, themes.ErrInvalidTheme):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// flexInt decodes a JSON number or a numeric string. Browser clients send
// form values as strings; both shapes are accepted.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("expected a number or numeric string, got %s", data)
	}
	n, err := strconv.Atoi(strings.TrimSpace(str))
	if err != nil {
		return fmt.Errorf("expected a numeric string, got %q", str)
	}
	*f = flexInt(n)
	return nil
}

// Game handlers

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BoardSize     flexInt `json:"boardSize"`
		PlayerCount   flexInt `json:"playerCount,omitempty"`
		PlayersNumber flexInt `json:"playersNumber,omitempty"` // Deprecated, use playerCount
		Theme         string  `json:"theme"`
		Visibility    string  `json:"visibility"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid game parameters: %v", err))
		return
	}

	playerCount := int(req.PlayerCount)
	if playerCount == 0 {
		playerCount = int(req.PlayersNumber)
	}

	visibility := engine.Visibility(req.Visibility)
	if req.Visibility == "" {
		visibility = engine.VisibilityPublic
	}

	sess, err := s.service.CreateGame(r.Context(), service.CreateGameParams{
		BoardSize:   int(req.BoardSize),
		PlayerCount: playerCount,
		Theme:       req.Theme,
		Visibility:  visibility,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcastLobby(r)
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.service.ListGames(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(games),
		"games": games,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	sess, err := s.service.GetGame(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	var req struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid join payload: %v", err))
		return
	}
	if req.ID == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "player id and name are required")
		return
	}

	player, err := s.service.JoinGame(r.Context(), gameID, req.ID, req.Name)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if player == nil {
		respondError(w, http.StatusConflict, "game is full")
		return
	}

	s.broadcastGame(r, gameID)
	respondJSON(w, http.StatusOK, player)
}

func (s *Server) handleReplayGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	var req struct {
		Theme string `json:"theme"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	sess, err := s.service.ReplayGame(r.Context(), gameID, req.Theme)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcastGame(r, gameID)
	respondJSON(w, http.StatusOK, sess)
}

// Theme handlers

func (s *Server) handleListThemes(w http.ResponseWriter, r *http.Request) {
	infos, err := s.service.ListThemes(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(infos),
		"themes": infos,
	})
}

func (s *Server) handleCreateTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string       `json:"name"`
		Theme themes.Theme `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid theme payload: %v", err))
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "theme name is required")
		return
	}

	if err := s.service.SaveTheme(r.Context(), req.Name, &req.Theme); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// WebSocket handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game")
	s.hub.ServeWS(w, r, gameID)
}

// Broadcast helpers

// broadcastGame pushes the updated session to its watchers and refreshes
// the lobby. Broadcast failures are logged, never surfaced to the caller:
// the mutation already committed.
func (s *Server) broadcastGame(r *http.Request, gameID string) {
	if s.hub == nil {
		return
	}

	sess, err := s.service.GetGame(r.Context(), gameID)
	if err != nil {
		s.logger.Warn().Err(err).Str("game", gameID).Msg("skipping game broadcast")
	} else {
		s.hub.BroadcastGame(sess)
	}

	s.broadcastLobby(r)
}

func (s *Server) broadcastLobby(r *http.Request) {
	if s.hub == nil {
		return
	}

	games, err := s.service.ListGames(r.Context())
	if err != nil {
		s.logger.Warn().Err(err).Msg("skipping lobby broadcast")
		return
	}
	s.hub.BroadcastLobby(games)
}
