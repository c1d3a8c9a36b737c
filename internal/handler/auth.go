package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tosho-dev/tosho-backend/internal/model"
)

type registerRequest struct {
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Role      model.Role `json:"role"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token  string        `json:"token"`
	Patron *model.Patron `json:"patron"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// ロール未指定の登録は学生として扱う
	if req.Role == "" {
		req.Role = model.RoleStudent
	}

	patron, err := h.patrons.Register(r.Context(), req.Username, req.Email, req.Password, req.FirstName, req.LastName, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, patron)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	patron, err := h.patrons.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	tokenString, err := h.tokens.Generate(patron, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: tokenString, Patron: patron})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	patron, err := h.patrons.Get(r.Context(), req.PatronID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, patron)
}

func (h *Handler) listPatrons(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	patrons, err := h.patrons.List(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, patrons)
}
