package main

import (
	"encoding/json"
	"errors"
	"net/http"
)

type signupRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *App) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in signupRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	_, err := a.sessions.Signup(r.Context(), SignupParams{
		Username: in.Username,
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
	})
	switch {
	case errors.Is(err, ErrMissingFields):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Username and password are required")
		return
	case errors.Is(err, ErrUsernameTaken):
		writeError(w, http.StatusBadRequest, "CONFLICT", "Username already exists")
		return
	case errors.Is(err, ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "CONFLICT", "Email already exists")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create account")
		return
	}

	// no tokens on signup: account creation never auto-authenticates
	writeMsg(w, "Signup successful! Please login to continue.", nil)
}

type loginRequest struct {
	Username string `json:"username"` // accepts a username or an email
	Password string `json:"password"`
}

func (a *App) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	session, err := a.sessions.Login(r.Context(), in.Username, in.Password)
	switch {
	case errors.Is(err, ErrMissingFields):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Username/email and password are required")
		return
	case errors.Is(err, ErrInvalidCredentials):
		// identical message for unknown user and wrong password
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"accessToken":  session.AccessToken,
		"refreshToken": session.RefreshToken,
		"username":     session.User.Username,
		"name":         session.User.Name,
		"id":           session.User.ID,
	})
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (a *App) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if in.Token == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Token is required")
		return
	}

	if err := a.sessions.Logout(r.Context(), in.Token); err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Logout failed")
		return
	}
	writeMsg(w, "Logout successful", nil)
}

// HandleRefresh mints a new access token. The body carries the refresh
// token in the same `Bearer <token>` shape as the authorization header.
func (a *App) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	refreshToken := extractBearer(in.Token)
	if refreshToken == "" {
		writeError(w, http.StatusUnauthorized, "TOKEN_MISSING", "Refresh token is missing")
		return
	}

	access, err := a.sessions.Refresh(r.Context(), refreshToken)
	switch {
	case errors.Is(err, ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "INVALID_TOKEN", "Invalid refresh token")
		return
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenExpired):
		writeError(w, http.StatusForbidden, "INVALID_TOKEN", "Invalid or expired refresh token")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Token refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"accessToken": access,
	})
}
