package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
)

type credentials struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type registerResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type loginResponse struct {
	Message   string       `json:"message"`
	User      userResponse `json:"user"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

func Register(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := decodeJSON(w, r, d.Validate, &req, false); err != nil {
			writeError(w, r, d, err)
			return
		}
		u, err := d.Auth.Register(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusCreated, registerResponse{
			Message: "User created",
			User:    userResponse{Email: u.Email, Role: u.Role},
		})
	}
}

func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := decodeJSON(w, r, d.Validate, &req, false); err != nil {
			writeError(w, r, d, err)
			return
		}
		session, err := d.Auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{
			Message:   "Login successful",
			User:      userResponse{Email: session.User.Email, Role: session.User.Role},
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt,
		})
	}
}
