package web

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/evcraddock/house-broker/internal/user"
)

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *user.User `json:"user"`
}

// apiRegister creates a broker or seeker account.
func (s *Server) apiRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role := user.Seeker
	if req.Role != "" {
		parsed, err := user.ParseRole(req.Role)
		if err != nil {
			apiError(w, "role must be Broker or Seeker", http.StatusBadRequest)
			return
		}
		role = parsed
	}

	u, err := s.users.Create(user.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      role,
	}, req.Password)
	if errors.Is(err, user.ErrEmailTaken) {
		apiError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	slog.Info("user registered", "id", u.ID, "role", u.Role)
	apiJSON(w, u, http.StatusCreated)
}

// apiLogin exchanges an email and password for a bearer token.
func (s *Server) apiLogin(w http.ResponseWriter, r *http.Request) {
	client := clientIP(r)
	if s.limiter.Limited(client) {
		apiError(w, "too many failed attempts", http.StatusTooManyRequests)
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := s.users.Authenticate(req.Email, req.Password)
	if errors.Is(err, user.ErrInvalidCredentials) {
		s.limiter.RecordFailure(client)
		apiError(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if err != nil {
		slog.Error("authenticating user", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.limiter.Reset(client)

	token, expires, err := s.issuer.Issue(u)
	if err != nil {
		slog.Error("issuing token", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	apiJSON(w, loginResponse{Token: token, ExpiresAt: expires, User: u}, http.StatusOK)
}

// clientIP strips the port from the remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
