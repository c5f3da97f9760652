package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingFields      = errors.New("username and password are required")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenNotFound      = errors.New("refresh token not found")
)

// SessionManager orchestrates signup, login, logout and refresh over the
// user directory, the credential store and the token issuer.
type SessionManager struct {
	users  UserDirectory
	tokens TokenStore
	issuer *TokenIssuer
}

func NewSessionManager(users UserDirectory, tokens TokenStore, issuer *TokenIssuer) *SessionManager {
	return &SessionManager{users: users, tokens: tokens, issuer: issuer}
}

type SignupParams struct {
	Username string
	Name     string
	Email    string
	Password string
}

// Session is what a successful login hands back.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// Signup creates the account and nothing else. It never issues tokens:
// account creation is kept separate from session creation, so the caller
// must log in afterwards.
func (s *SessionManager) Signup(ctx context.Context, p SignupParams) (*User, error) {
	if p.Username == "" || p.Password == "" {
		return nil, ErrMissingFields
	}

	taken, err := s.users.UsernameExists(ctx, p.Username)
	if err != nil {
		return nil, fmt.Errorf("checking username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	if p.Email != "" {
		taken, err := s.users.EmailExists(ctx, p.Email)
		if err != nil {
			return nil, fmt.Errorf("checking email: %w", err)
		}
		if taken {
			return nil, ErrEmailTaken
		}
	}

	name := p.Name
	if name == "" {
		name = p.Username
	}
	hash, err := hashPassword(p.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	created, err := s.users.CreateUser(ctx, &User{
		ID:        uuid.NewString(),
		Username:  p.Username,
		Name:      name,
		Email:     p.Email,
		Password:  hash,
		CreatedAt: time.Now(),
	})
	if err != nil {
		// a concurrent signup can still lose the race after the exists check
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return created.Sanitized(), nil
}

// Login authenticates by username or email, exact match. Unknown user and
// wrong password fail identically so usernames cannot be enumerated.
func (s *SessionManager) Login(ctx context.Context, usernameOrEmail, password string) (*Session, error) {
	if usernameOrEmail == "" || password == "" {
		return nil, ErrMissingFields
	}

	u, err := s.users.GetUserByLogin(ctx, usernameOrEmail)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if u == nil || !comparePassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}

	access, err := s.issuer.IssueAccessToken(u)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}
	refresh, err := s.issuer.IssueRefreshToken(u)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}
	if err := s.tokens.SaveToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("persisting refresh token: %w", err)
	}

	return &Session{AccessToken: access, RefreshToken: refresh, User: u.Sanitized()}, nil
}

// Logout revokes the refresh token by deleting its record. Idempotent.
func (s *SessionManager) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.DeleteToken(ctx, refreshToken)
}

// Refresh mints a new access token from a live refresh token. The refresh
// token itself is not rotated and stays valid until logged out.
func (s *SessionManager) Refresh(ctx context.Context, refreshToken string) (string, error) {
	live, err := s.tokens.TokenExists(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("checking refresh token: %w", err)
	}
	if !live {
		return "", ErrTokenNotFound
	}

	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}

	access, err := s.issuer.IssueAccessToken(&User{
		ID:       claims.UserID,
		Username: claims.Username,
		Name:     claims.Name,
	})
	if err != nil {
		return "", fmt.Errorf("issuing access token: %w", err)
	}
	return access, nil
}
