package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tosho-dev/tosho-backend/internal/model"
)

type createReservationRequest struct {
	PatronID string `json:"patron_id"`
	BookID   int64  `json:"book_id"`
}

type updateReservationStatusRequest struct {
	Status model.ReservationStatus `json:"status"`
}

func (h *Handler) listReservations(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	reservations, err := h.reservations.List(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reservations)
}

func (h *Handler) createReservation(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var body createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// patron_id省略時は自分名義の予約として扱う
	if body.PatronID == "" {
		body.PatronID = req.PatronID
	}
	if body.BookID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "book_id is required"})
		return
	}

	reservation, err := h.reservations.Create(r.Context(), req, body.PatronID, body.BookID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reservation)
}

func (h *Handler) cancelReservation(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	reservationID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reservation id"})
		return
	}

	reservation, err := h.reservations.Cancel(r.Context(), req, reservationID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reservation)
}

// updateReservationStatus は予約ステータスの直接更新を受け付けます
// picked_upにしても貸出は作成されません。貸出は別途POST /api/loansで行います
func (h *Handler) updateReservationStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	reservationID, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reservation id"})
		return
	}

	var body updateReservationStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	reservation, err := h.reservations.UpdateStatus(r.Context(), req, reservationID, body.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reservation)
}
