package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/comicguess/internal/api/middleware"
	"github.com/mcoot/comicguess/internal/api/request"
	"github.com/mcoot/comicguess/internal/api/response"
	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/services/guess"
	"github.com/mcoot/comicguess/internal/services/puzzle"
)

// maxGuessBody bounds the guess request body
const maxGuessBody = 4 << 10

// PuzzleHandler handles puzzle and guess endpoints
type PuzzleHandler struct {
	puzzles      *puzzle.Service
	guessService *guess.Service
}

// NewPuzzleHandler creates a new puzzle handler
func NewPuzzleHandler(puzzles *puzzle.Service, guessService *guess.Service) *PuzzleHandler {
	return &PuzzleHandler{
		puzzles:      puzzles,
		guessService: guessService,
	}
}

// Today handles GET /api/v1/puzzles/{track}/today
func (h *PuzzleHandler) Today(w http.ResponseWriter, r *http.Request) {
	track, err := trackParam(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	p, err := h.puzzles.Today(r.Context(), track)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PuzzleFromModel(p))
}

// Status handles GET /api/v1/puzzles/{track}/today/status
func (h *PuzzleHandler) Status(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	track, err := trackParam(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	st, err := h.guessService.Status(r.Context(), player.ID, track)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StatusFromService(st))
}

// History handles GET /api/v1/puzzles/{track}/today/guesses
func (h *PuzzleHandler) History(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	track, err := trackParam(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	p, err := h.puzzles.Today(r.Context(), track)
	if err != nil {
		WriteError(w, err)
		return
	}
	guesses, err := h.guessService.History(r.Context(), player.ID, track)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.HistoryFromModel(p.ID, guesses))
}

// SubmitGuess handles POST /api/v1/puzzles/{track}/today/guesses
func (h *PuzzleHandler) SubmitGuess(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	track, err := trackParam(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.GuessRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGuessBody)).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	result, err := h.guessService.CheckGuess(r.Context(), player.ID, track, req.Guess)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GuessResultFromService(result))
}

func trackParam(r *http.Request) (model.Track, error) {
	return model.ParseTrack(mux.Vars(r)["track"])
}
