package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidTrack       = "INVALID_TRACK"
	CodeInvalidGuess       = "INVALID_GUESS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodePuzzleNotFound     = "PUZZLE_NOT_FOUND"
	CodeAlreadySolved      = "ALREADY_SOLVED"
	CodeAttemptsExhausted  = "ATTEMPTS_EXHAUSTED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error is written with
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError.
// Unknown errors become a 500 whose message never echoes the cause.
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrInvalidTrack):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidTrack, "Track must be one of marvel, dc, image"}}
	case errors.Is(err, model.ErrInvalidDate):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Date must be YYYY-MM-DD"}}
	case errors.Is(err, model.ErrGuessEmpty):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidGuess, "Guess must not be empty"}}
	case errors.Is(err, model.ErrGuessTooLong):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidGuess, "Guess must be at most 100 characters"}}
	case errors.Is(err, model.ErrInvalidDisplayName):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Display name must be 1-50 characters"}}
	case errors.Is(err, model.ErrPuzzleNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePuzzleNotFound, "No puzzle is available for this track today"}}
	case errors.Is(err, model.ErrAlreadySolved):
		return &httpError{http.StatusConflict, APIError{CodeAlreadySolved, "Puzzle already solved"}}
	case errors.Is(err, model.ErrAttemptsExhausted):
		return &httpError{http.StatusTooManyRequests, APIError{CodeAttemptsExhausted, "No attempts remaining for today"}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewRateLimitedError creates a rate limit error
func NewRateLimitedError() error {
	return &httpError{http.StatusTooManyRequests, APIError{CodeRateLimited, "Too many guesses, slow down"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
