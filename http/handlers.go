package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"

	"themind/auth"
	"themind/game"
	"themind/log"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

var statusByCode = map[string]int{
	"Unauthorized":   http.StatusUnauthorized,
	"Forbidden":      http.StatusForbidden,
	"InvalidInput":   http.StatusBadRequest,
	"NotFound":       http.StatusNotFound,
	"StorageFailure": http.StatusInternalServerError,
}

type Handlers struct {
	authService *auth.Service
	lobby       *game.Lobby
	engine      *game.Engine
}

func NewHandlers(authService *auth.Service, lobby *game.Lobby, engine *game.Engine) *Handlers {
	return &Handlers{
		authService: authService,
		lobby:       lobby,
		engine:      engine,
	}
}

func writeEnvelope(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("Failed to write JSON response: %v", err)
	}
}

func writeOK(w http.ResponseWriter, status int, data any, message string) {
	writeEnvelope(w, status, envelope{Success: true, Data: data, Message: message})
}

// writeError maps err onto its taxonomy code. Storage failures are logged
// with their cause and reported without it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := game.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusConflict
	}

	message := err.Error()
	if code == "StorageFailure" {
		log.ErrorCtx(r.Context(), "%s %s: %v", r.Method, r.URL.Path, err)
		message = "Something went wrong, please try again."
	}
	writeEnvelope(w, status, envelope{Error: code, Message: message})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return game.ErrInvalidInput
	}
	return nil
}

func matchIDFromRequest(r *http.Request) (int64, error) {
	matchID, err := strconv.ParseInt(mux.Vars(r)["matchId"], 10, 64)
	if err != nil || matchID <= 0 {
		return 0, game.ErrInvalidInput
	}
	return matchID, nil
}

func userIDFromRequest(r *http.Request) int64 {
	userID, _ := GetUserIDFromContext(r.Context())
	return userID
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Auth handlers
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.authService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
			writeEnvelope(w, http.StatusBadRequest, envelope{Error: game.Code(game.ErrInvalidInput), Message: err.Error()})
		case errors.Is(err, auth.ErrUserExists):
			writeEnvelope(w, http.StatusConflict, envelope{Error: game.Code(game.ErrConflict), Message: err.Error()})
		default:
			writeError(w, r, err)
		}
		return
	}

	writeOK(w, http.StatusCreated, map[string]any{"userId": user.ID, "username": user.Username}, "User registered successfully")
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sessionID, user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeEnvelope(w, http.StatusUnauthorized, envelope{Error: game.Code(game.ErrUnauthorized), Message: err.Error()})
			return
		}
		writeError(w, r, err)
		return
	}

	if err := h.authService.GetSessionManager().SetSessionCookie(w, sessionID); err != nil {
		writeError(w, r, err)
		return
	}

	log.InfoCtx(r.Context(), "Login successful for user %s (ID: %d)", user.Username, user.ID)
	writeOK(w, http.StatusOK, map[string]any{"userId": user.ID, "username": user.Username}, "Login successful")
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	sm := h.authService.GetSessionManager()
	if sessionID := sm.SessionFromRequest(r); sessionID != "" {
		h.authService.Logout(sessionID)
	}
	sm.ClearSessionCookie(w)

	writeOK(w, http.StatusOK, nil, "Logged out successfully")
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	user, err := h.authService.User(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, r, game.ErrUnauthorized)
		return
	}

	stats, err := h.lobby.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, http.StatusOK, map[string]any{
		"userId":   user.ID,
		"username": user.Username,
		"stats":    stats,
	}, statsMessage(stats))
}

// CSRFToken issues the token clients send back in X-CSRF-Token.
func (h *Handlers) CSRFToken(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, map[string]string{"token": csrf.Token(r)}, "")
}

// Lobby handlers
func (h *Handlers) ListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.lobby.ListMatches(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, matches, "")
}

func (h *Handlers) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Capacity   int    `json:"capacity"`
		Difficulty string `json:"difficulty"`
		Visibility string `json:"visibility"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Capacity == 0 {
		req.Capacity = game.MaxPlayers
	}

	matchID, err := h.lobby.CreateMatch(r.Context(), userIDFromRequest(r), req.Capacity, req.Difficulty, req.Visibility)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]int64{"matchId": matchID}, "Match created")
}

func (h *Handlers) JoinMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	player, err := h.lobby.JoinMatch(r.Context(), matchID, userIDFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, player, joinMessage(player))
}

func (h *Handlers) Scores(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	scores, err := h.lobby.Scores(r.Context(), matchID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, scores, "")
}

// Match handlers
func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	snap, err := h.engine.Snapshot(r.Context(), matchID, userIDFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, snap, "")
}

func (h *Handlers) Log(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	events, err := h.engine.History(r.Context(), matchID, userIDFromRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, events, "")
}

func (h *Handlers) PlayCard(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		CardID  int64 `json:"cardId"`
		Version int64 `json:"version"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CardID <= 0 {
		writeError(w, r, game.ErrInvalidInput)
		return
	}

	res, err := h.engine.PlayCard(r.Context(), matchID, userIDFromRequest(r), req.CardID, req.Version)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, res, playMessage(res))
}

func (h *Handlers) UseShuriken(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Version int64 `json:"version"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.engine.UseShuriken(r.Context(), matchID, userIDFromRequest(r), req.Version)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, res, shurikenMessage(res))
}

func (h *Handlers) Admin(w http.ResponseWriter, r *http.Request) {
	matchID, err := matchIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Action  string `json:"action"`
		Version int64  `json:"version"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.engine.Admin(r.Context(), matchID, userIDFromRequest(r), req.Action, req.Version)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, res, transitionMessage(res))
}
