package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/comicguess/internal/api/apierr"
	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/services/auth"
)

type sessionKey struct{}

// Auth requires a valid bearer token and stores the session on the request context
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="comicguess"`)
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			session, err := authService.ValidateSession(r.Context(), token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="comicguess", error="invalid_token"`)
				apierr.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
		})
	}
}

// bearerToken parses "Bearer <token>". The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetPlayer returns the authenticated player, or nil outside Auth
func GetPlayer(ctx context.Context) *model.Player {
	session, _ := ctx.Value(sessionKey{}).(*auth.Session)
	if session == nil {
		return nil
	}
	return &session.Player
}

// MustGetPlayer returns the authenticated player or panics
func MustGetPlayer(ctx context.Context) *model.Player {
	player := GetPlayer(ctx)
	if player == nil {
		panic("no player in context: auth middleware not applied")
	}
	return player
}
