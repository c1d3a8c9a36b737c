package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

type issueLoanRequest struct {
	PatronID string    `json:"patron_id"`
	BookID   int64     `json:"book_id"`
	DueDate  time.Time `json:"due_date"`
}

func (h *Handler) listLoans(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	loans, err := h.loans.ListLoans(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loans)
}

func (h *Handler) issueLoan(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var body issueLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.PatronID == "" || body.BookID == 0 || body.DueDate.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "patron_id, book_id and due_date are required"})
		return
	}

	loan, err := h.loans.Issue(r.Context(), req, body.PatronID, body.BookID, body.DueDate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, loan)
}

func (h *Handler) returnLoan(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	loanID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid loan id"})
		return
	}

	result, err := h.loans.Return(r.Context(), req, loanID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
