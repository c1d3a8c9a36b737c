package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/tosho-dev/tosho-backend/internal/middleware"
	"github.com/tosho-dev/tosho-backend/internal/model"
	"github.com/tosho-dev/tosho-backend/internal/service"
	"github.com/tosho-dev/tosho-backend/internal/token"
)

// Handler はHTTP APIのルーティングと各サービスへの委譲を担当します
type Handler struct {
	books         *service.BookService
	loans         *service.LoanService
	reservations  *service.ReservationService
	fines         *service.FineService
	notifications *service.NotificationService
	patrons       *service.PatronService
	tokens        *token.Manager
}

// New は新しいHandlerを作成します
func New(
	books *service.BookService,
	loans *service.LoanService,
	reservations *service.ReservationService,
	fines *service.FineService,
	notifications *service.NotificationService,
	patrons *service.PatronService,
	tokens *token.Manager,
) *Handler {
	return &Handler{
		books:         books,
		loans:         loans,
		reservations:  reservations,
		fines:         fines,
		notifications: notifications,
		patrons:       patrons,
		tokens:        tokens,
	}
}

// Routes はAPIの全ルートを登録したハンドラを返します
// 認証不要なのはヘルスチェックと登録・ログインのみです
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthcheck", h.healthcheck)
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)

	authed := http.NewServeMux()
	authed.HandleFunc("GET /api/auth/me", h.me)

	authed.HandleFunc("GET /api/books", h.listBooks)
	authed.HandleFunc("GET /api/books/{id}", h.getBook)
	authed.HandleFunc("POST /api/books", h.createBook)
	authed.HandleFunc("PUT /api/books/{id}", h.updateBook)
	authed.HandleFunc("DELETE /api/books/{id}", h.deleteBook)

	authed.HandleFunc("GET /api/loans", h.listLoans)
	authed.HandleFunc("POST /api/loans", h.issueLoan)
	authed.HandleFunc("POST /api/loans/{id}/return", h.returnLoan)

	authed.HandleFunc("GET /api/reservations", h.listReservations)
	authed.HandleFunc("POST /api/reservations", h.createReservation)
	authed.HandleFunc("POST /api/reservations/{id}/cancel", h.cancelReservation)
	authed.HandleFunc("PATCH /api/reservations/{id}/status", h.updateReservationStatus)

	authed.HandleFunc("GET /api/fines", h.listFines)
	authed.HandleFunc("POST /api/fines", h.createFine)
	authed.HandleFunc("POST /api/fines/{id}/pay", h.payFine)
	authed.HandleFunc("DELETE /api/fines/{id}", h.deleteFine)

	authed.HandleFunc("GET /api/notifications", h.listNotifications)
	authed.HandleFunc("POST /api/notifications", h.emitNotification)
	authed.HandleFunc("POST /api/notifications/{id}/read", h.markNotificationRead)

	authed.HandleFunc("GET /api/patrons", h.listPatrons)

	mux.Handle("/api/", middleware.Auth(h.tokens, h.patrons)(authed))

	return mux
}

func (h *Handler) healthcheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requester はコンテキストからリクエスト主体を取り出します
// 認証ミドルウェアを通過したリクエストには必ず設定されています
func requester(r *http.Request) (model.Requester, bool) {
	return middleware.RequesterFrom(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// writeError はドメインエラーをHTTPステータスに変換して返します
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFromError(err), map[string]string{"error": err.Error()})
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrUnavailable),
		errors.Is(err, model.ErrAlreadyReturned),
		errors.Is(err, model.ErrAlreadyPaid),
		errors.Is(err, model.ErrAlreadyCancelled),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrInvalidTransition):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
