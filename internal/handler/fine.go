package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
)

type createFineRequest struct {
	LoanID int64           `json:"loan_id"`
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) listFines(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var paid *bool
	if value := r.URL.Query().Get("paid"); value != "" {
		p := value == "true"
		paid = &p
	}

	fines, err := h.fines.List(r.Context(), req, paid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fines)
}

func (h *Handler) createFine(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var body createFineRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.LoanID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "loan_id is required"})
		return
	}

	fine, err := h.fines.Create(r.Context(), req, body.LoanID, body.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, fine)
}

func (h *Handler) payFine(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	fineID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fine id"})
		return
	}

	fine, err := h.fines.Pay(r.Context(), req, fineID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fine)
}

func (h *Handler) deleteFine(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	fineID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid fine id"})
		return
	}

	if err := h.fines.Delete(r.Context(), req, fineID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
