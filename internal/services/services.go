package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adanyl0v/smart-goals/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserPasswordMismatch = errors.New("user password mismatch")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
)

type AuthService interface {
	// Register a user with the given email and password.
	//
	// It hashes the password, generates a unique ID and creates a
	// session with the given fingerprint and a fresh JWT token pair.
	//
	// It returns ErrUserAlreadyExists if the user
	// with the given email already exists.
	Register(ctx context.Context, params LoginParams) (*LoginResult, error)

	// Login authenticates the user by email and password.
	//
	// It replaces all sessions of the user with a new one.
	//
	// It returns ErrUserNotFound or ErrUserPasswordMismatch.
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)

	// Refresh rotates the refresh token of the session it belongs to.
	//
	// It returns ErrSessionNotFound if no session matches the token and
	// fingerprint or ErrSessionExpired if the session is expired.
	Refresh(ctx context.Context, params RefreshParams) (*LoginResult, error)

	// Logout invalidates all sessions with the given user ID.
	Logout(ctx context.Context, userID string) error

	// ParseJWTToken parses the given JWT token and returns the registered
	// claims or jwt.ErrTokenExpired if the token is expired.
	ParseJWTToken(token string) (*jwt.RegisteredClaims, error)

	// ResolveSession returns the live session an access token was issued
	// for. Goal requests are scoped to the session's user.
	ResolveSession(ctx context.Context, accessToken string) (*models.Session, error)
}

type LoginParams struct {
	Email       string
	Password    string
	Fingerprint string
}

type LoginResult struct {
	UserID                string
	SessionID             string
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

type RefreshParams struct {
	RefreshToken string
	Fingerprint  string
}
