package authhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"audioforge/internal/application/auth"
)

type authUseCases interface {
	Login(ctx context.Context, email, password string) (string, error)
	Validate(token string) (auth.Claims, error)
}

type Handler struct {
	auth authUseCases
}

// NewHandler wires the auth HTTP handlers.
func NewHandler(service authUseCases) *Handler {
	return &Handler{auth: service}
}

// NewRouter configures the auth service routes.
func NewRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/login", handler.Login).Methods("POST")
	r.HandleFunc("/validate", handler.Validate).Methods("POST")
	return r
}

// Login handles POST /login with basic credentials.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok {
		http.Error(w, "missing credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.auth.Login(r.Context(), email, password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingCredentials):
			http.Error(w, "missing credentials", http.StatusUnauthorized)
		case errors.Is(err, auth.ErrInvalidCredentials):
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
		default:
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// Validate handles POST /validate with a bearer token.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if header == "" {
		http.Error(w, "missing credentials", http.StatusUnauthorized)
		return
	}

	token := strings.TrimPrefix(header, "Bearer ")
	claims, err := h.auth.Validate(strings.TrimSpace(token))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"valid":   true,
		"subject": claims.Subject,
		"exp":     claims.ExpiresAt,
	})
}
