package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/comicguess/internal/api/apierr"
	"github.com/mcoot/comicguess/internal/middleware"
)

// Recovery creates panic recovery middleware for the API
// Returns JSON error responses on panic
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, apiPanicHandler)
}

// RequestID tags each API request with an ID for the logs and the response header
func RequestID(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

// Logging logs each API request
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger)
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
