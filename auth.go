package main

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrTokenInvalid covers malformed tokens and signature mismatches.
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired is returned when the expiry claim is in the past.
	ErrTokenExpired = errors.New("token is expired")
)

func hashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	return string(b), err
}

func comparePassword(hash, p string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}

// AccessClaims is the identity claim set embedded in both token classes.
// It is reconstructed by verification on every request and never stored.
type AccessClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

const accessTokenTTL = 15 * time.Minute

// TokenIssuer signs and verifies access and refresh tokens. The two token
// classes use distinct secrets so that a compromised signing key cannot
// forge tokens of the other class. Secrets are handed in at construction;
// nothing here reads ambient state.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	now           func() time.Time
}

func NewTokenIssuer(accessSecret, refreshSecret string) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTokenTTL,
		now:           time.Now,
	}
}

// IssueAccessToken mints a short-lived stateless token for u.
func (t *TokenIssuer) IssueAccessToken(u *User) (string, error) {
	claims := AccessClaims{
		UserID:   u.ID,
		Username: u.Username,
		Name:     u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(t.now().Add(t.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(t.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
}

// IssueRefreshToken mints a long-lived token for u. Refresh tokens carry no
// expiry claim; they are invalidated by deleting their credential-store
// record, not by time.
func (t *TokenIssuer) IssueRefreshToken(u *User) (string, error) {
	claims := AccessClaims{
		UserID:   u.ID,
		Username: u.Username,
		Name:     u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(t.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
}

// VerifyAccess validates signature and expiry of an access token and
// returns the embedded claims. It deliberately consults no storage.
func (t *TokenIssuer) VerifyAccess(raw string) (*AccessClaims, error) {
	return t.verify(raw, t.accessSecret)
}

// VerifyRefresh checks a refresh token against the refresh secret. Callers
// must pair this with a credential-store existence check; a valid signature
// alone does not mean the token is still live.
func (t *TokenIssuer) VerifyRefresh(raw string) (*AccessClaims, error) {
	return t.verify(raw, t.refreshSecret)
}

func (t *TokenIssuer) verify(raw string, secret []byte) (*AccessClaims, error) {
	var claims AccessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}
