package auth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/comicguess/internal/dependencies/clock"
	"github.com/mcoot/comicguess/internal/dependencies/ids"
	"github.com/mcoot/comicguess/internal/model"
	"github.com/mcoot/comicguess/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("username must be 3-32 letters, digits, '_', '.' or '-'")
	ErrInvalidPassword    = errors.New("password must be 8-72 bytes")
)

const (
	MaxDisplayNameLength = 50
	MinPasswordLength    = 8
	MaxPasswordLength    = 72 // bcrypt ignores anything longer
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// Claims are the JWT claims issued to a player. The subject is the player ID.
type Claims struct {
	DisplayName string `json:"name"`
	IsGuest     bool   `json:"guest"`
	jwt.RegisteredClaims
}

// Session represents an authenticated session
type Session struct {
	Token     string
	PlayerID  model.PlayerID
	Player    model.Player
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Service handles accounts and token issuing
type Service struct {
	storage   storage.Storage
	clock     clock.Clock
	ids       ids.Generator
	sanitizer *bluemonday.Policy

	secret        []byte
	tokenDuration time.Duration
}

// Config holds configuration for the auth service
type Config struct {
	// Secret signs issued tokens with HS256
	Secret        string
	TokenDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Secret:        "comicguess-dev-secret",
		TokenDuration: 24 * time.Hour,
	}
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, ids ids.Generator, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.TokenDuration == 0 {
		cfg.TokenDuration = defaults.TokenDuration
	}
	if cfg.Secret == "" {
		cfg.Secret = defaults.Secret
	}
	return &Service{
		storage:       storage,
		clock:         clock,
		ids:           ids,
		sanitizer:     bluemonday.StrictPolicy(),
		secret:        []byte(cfg.Secret),
		tokenDuration: cfg.TokenDuration,
	}
}

// CreateGuestPlayer creates an anonymous player and session
func (s *Service) CreateGuestPlayer(ctx context.Context, displayName string) (*Session, error) {
	displayName, err := s.cleanDisplayName(displayName)
	if err != nil {
		return nil, err
	}

	player := model.NewPlayer(model.PlayerID(s.ids.NewID()), displayName, true, s.clock.Now())
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	return s.createSession(player)
}

// RegisterPlayer creates a registered player account and session
func (s *Service) RegisterPlayer(ctx context.Context, username, password, displayName string) (*Session, error) {
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return nil, ErrInvalidPassword
	}
	displayName, err := s.cleanDisplayName(displayName)
	if err != nil {
		return nil, err
	}

	// Check if username exists
	_, err = s.storage.GetRegisteredPlayerByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrPlayerNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	player := model.NewPlayer(model.PlayerID(s.ids.NewID()), displayName, false, now)

	registeredPlayer := &model.RegisteredPlayer{
		PlayerID:     player.ID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}

	if err := s.storage.SaveRegisteredPlayer(ctx, registeredPlayer); err != nil {
		return nil, err
	}

	return s.createSession(player)
}

// Login authenticates a registered player and creates a session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	rp, err := s.storage.GetRegisteredPlayerByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rp.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	player, err := s.storage.GetPlayer(ctx, rp.PlayerID)
	if err != nil {
		return nil, err
	}

	return s.createSession(player)
}

// ValidateSession verifies a token and loads the player it was issued to.
// Tokens of deleted players are rejected.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, ErrInvalidSession
	}

	player, err := s.storage.GetPlayer(ctx, model.PlayerID(claims.Subject))
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	return &Session{
		Token:     token,
		PlayerID:  player.ID,
		Player:    *player,
		CreatedAt: claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// GetPlayer returns the player for a session token
func (s *Service) GetPlayer(ctx context.Context, token string) (*model.Player, error) {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}
	return &session.Player, nil
}

// DeleteAccount removes a player and everything recorded for them
func (s *Service) DeleteAccount(ctx context.Context, playerID model.PlayerID) error {
	return s.storage.DeletePlayer(ctx, playerID)
}

func (s *Service) createSession(player *model.Player) (*Session, error) {
	now := s.clock.Now()
	expires := now.Add(s.tokenDuration)

	claims := Claims{
		DisplayName: player.DisplayName,
		IsGuest:     player.IsGuest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(player.ID),
			ID:        s.ids.NewID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Session{
		Token:     token,
		PlayerID:  player.ID,
		Player:    *player,
		CreatedAt: now,
		ExpiresAt: expires,
	}, nil
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func (s *Service) cleanDisplayName(name string) (string, error) {
	name = strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(name)))
	if name == "" || utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return "", model.ErrInvalidDisplayName
	}
	return name, nil
}
