package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/comicguess/internal/api/middleware"
	"github.com/mcoot/comicguess/internal/api/request"
	"github.com/mcoot/comicguess/internal/api/response"
	"github.com/mcoot/comicguess/internal/services/auth"
	"github.com/mcoot/comicguess/internal/services/guess"
	"github.com/mcoot/comicguess/internal/services/puzzle"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	authService  *auth.Service
	guessService *guess.Service
	puzzles      *puzzle.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(authService *auth.Service, guessService *guess.Service, puzzles *puzzle.Service) *PlayerHandler {
	return &PlayerHandler{
		authService:  authService,
		guessService: guessService,
		puzzles:      puzzles,
	}
}

// CreateGuest handles POST /api/v1/players/guest
func (h *PlayerHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.DisplayName == "" {
		WriteError(w, NewInvalidRequestError("display_name is required"))
		return
	}

	session, err := h.authService.CreateGuestPlayer(r.Context(), req.DisplayName)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AuthResponseFromSession(session))
}

// Register handles POST /api/v1/players/register
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}
	if req.DisplayName == "" {
		WriteError(w, NewInvalidRequestError("display_name is required"))
		return
	}

	session, err := h.authService.RegisterPlayer(r.Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AuthResponseFromSession(session))
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// DeleteMe handles DELETE /api/v1/players/me
func (h *PlayerHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	if err := h.authService.DeleteAccount(r.Context(), player.ID); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// GetStreaks handles GET /api/v1/players/me/streaks
func (h *PlayerHandler) GetStreaks(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	response.JSON(w, http.StatusOK, response.StreaksFromModel(player, h.puzzles.TodayDate()))
}

// GetProgress handles GET /api/v1/players/me/progress
func (h *PlayerHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	statuses, err := h.guessService.DailyProgress(r.Context(), player.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ProgressFromService(statuses))
}
