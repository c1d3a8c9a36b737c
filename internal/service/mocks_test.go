package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tosho-dev/tosho-backend/internal/model"
)

// mockTxManager はテスト用のトランザクションマネージャです
// トランザクションを開始せず、関数をそのまま実行します
type mockTxManager struct {
	runInTxCalled bool
	runInTxError  error
}

func (m *mockTxManager) RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	m.runInTxCalled = true
	if m.runInTxError != nil {
		return m.runInTxError
	}
	return fn(nil)
}

// mockBookRepository はテスト用のモックリポジトリです
type mockBookRepository struct {
	book             *model.Book
	getByIDError     error
	title            string
	titleError       error
	availableCopies  int
	availableError   error
	books            []model.Book
	decrementCalled  bool
	decrementError   error
	incrementCalled  bool
	incrementError   error
	createError      error
	updateError      error
	softDeleteCalled bool
	softDeleteError  error
}

func (m *mockBookRepository) GetByID(ctx context.Context, bookID int64) (*model.Book, error) {
	if m.getByIDError != nil {
		return nil, m.getByIDError
	}
	return m.book, nil
}

func (m *mockBookRepository) GetTitleByID(ctx context.Context, bookID int64) (string, error) {
	return m.title, m.titleError
}

func (m *mockBookRepository) GetAvailableCopies(ctx context.Context, tx *sqlx.Tx, bookID int64) (int, error) {
	return m.availableCopies, m.availableError
}

func (m *mockBookRepository) List(ctx context.Context, filter model.BookFilter) ([]model.Book, error) {
	return m.books, nil
}

func (m *mockBookRepository) Create(ctx context.Context, book *model.Book) error {
	if m.createError != nil {
		return m.createError
	}
	book.ID = 1
	return nil
}

func (m *mockBookRepository) Update(ctx context.Context, book *model.Book) error {
	return m.updateError
}

func (m *mockBookRepository) SoftDelete(ctx context.Context, bookID int64) error {
	m.softDeleteCalled = true
	return m.softDeleteError
}

func (m *mockBookRepository) DecrementAvailable(ctx context.Context, tx *sqlx.Tx, bookID int64) error {
	m.decrementCalled = true
	return m.decrementError
}

func (m *mockBookRepository) IncrementAvailable(ctx context.Context, tx *sqlx.Tx, bookID int64) error {
	m.incrementCalled = true
	return m.incrementError
}

// mockLoanRepository はテスト用のモックリポジトリです
type mockLoanRepository struct {
	loan               *model.Loan
	getByIDError       error
	createdLoan        *model.Loan
	createError        error
	markReturnedCalled bool
	markReturnedError  error
	returnedDate       time.Time
	loans              []model.Loan
	patronLoans        []model.Loan
	listByPatronCalled bool
	overdueLoans       []model.OverdueLoan
	overdueError       error
}

func (m *mockLoanRepository) Create(ctx context.Context, tx *sqlx.Tx, loan *model.Loan) error {
	if m.createError != nil {
		return m.createError
	}
	loan.ID = 1
	m.createdLoan = loan
	return nil
}

func (m *mockLoanRepository) GetByID(ctx context.Context, loanID int64) (*model.Loan, error) {
	if m.getByIDError != nil {
		return nil, m.getByIDError
	}
	return m.loan, nil
}

func (m *mockLoanRepository) MarkReturned(ctx context.Context, tx *sqlx.Tx, loanID int64, returnDate time.Time) error {
	m.markReturnedCalled = true
	m.returnedDate = returnDate
	return m.markReturnedError
}

func (m *mockLoanRepository) ListAll(ctx context.Context) ([]model.Loan, error) {
	return m.loans, nil
}

func (m *mockLoanRepository) ListByPatron(ctx context.Context, patronID string) ([]model.Loan, error) {
	m.listByPatronCalled = true
	return m.patronLoans, nil
}

func (m *mockLoanRepository) GetOverdueLoans(ctx context.Context, today time.Time) ([]model.OverdueLoan, error) {
	return m.overdueLoans, m.overdueError
}

// mockFineRepository はテスト用のモックリポジトリです
type mockFineRepository struct {
	fine               *model.Fine
	getByIDError       error
	existsForLoan      bool
	existsError        error
	createdFine        *model.Fine
	createError        error
	markPaidCalled     bool
	markPaidError      error
	deleteCalled       bool
	deleteError        error
	fines              []model.Fine
	patronFines        []model.Fine
	listByPatronCalled bool
}

func (m *mockFineRepository) Create(ctx context.Context, tx *sqlx.Tx, fine *model.Fine) error {
	if m.createError != nil {
		return m.createError
	}
	fine.ID = 1
	m.createdFine = fine
	return nil
}

func (m *mockFineRepository) GetByID(ctx context.Context, fineID int64) (*model.Fine, error) {
	if m.getByIDError != nil {
		return nil, m.getByIDError
	}
	return m.fine, nil
}

func (m *mockFineRepository) ExistsForLoan(ctx context.Context, tx *sqlx.Tx, loanID int64) (bool, error) {
	return m.existsForLoan, m.existsError
}

func (m *mockFineRepository) MarkPaid(ctx context.Context, fineID int64) error {
	m.markPaidCalled = true
	return m.markPaidError
}

func (m *mockFineRepository) Delete(ctx context.Context, fineID int64) error {
	m.deleteCalled = true
	return m.deleteError
}

func (m *mockFineRepository) ListAll(ctx context.Context, paid *bool) ([]model.Fine, error) {
	return m.fines, nil
}

func (m *mockFineRepository) ListByPatron(ctx context.Context, patronID string, paid *bool) ([]model.Fine, error) {
	m.listByPatronCalled = true
	return m.patronFines, nil
}

// mockReservationRepository はテスト用のモックリポジトリです
type mockReservationRepository struct {
	reservation        *model.Reservation
	getByIDError       error
	createdReservation *model.Reservation
	createError        error
	oldestPending      *model.Reservation
	oldestError        error
	updateStatusCalled bool
	updatedStatus      model.ReservationStatus
	updateStatusError  error
	reservations       []model.Reservation
	patronReservations []model.Reservation
	listByPatronCalled bool
}

func (m *mockReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	if m.createError != nil {
		return m.createError
	}
	reservation.ID = 1
	m.createdReservation = reservation
	return nil
}

func (m *mockReservationRepository) GetByID(ctx context.Context, reservationID int64) (*model.Reservation, error) {
	if m.getByIDError != nil {
		return nil, m.getByIDError
	}
	return m.reservation, nil
}

func (m *mockReservationRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, reservationID int64, status model.ReservationStatus) error {
	m.updateStatusCalled = true
	m.updatedStatus = status
	return m.updateStatusError
}

func (m *mockReservationRepository) GetOldestPending(ctx context.Context, tx *sqlx.Tx, bookID int64) (*model.Reservation, error) {
	return m.oldestPending, m.oldestError
}

func (m *mockReservationRepository) ListAll(ctx context.Context) ([]model.Reservation, error) {
	return m.reservations, nil
}

func (m *mockReservationRepository) ListByPatron(ctx context.Context, patronID string) ([]model.Reservation, error) {
	m.listByPatronCalled = true
	return m.patronReservations, nil
}

// mockNotificationRepository はテスト用のモックリポジトリです
type mockNotificationRepository struct {
	notification       *model.Notification
	getByIDError       error
	created            []model.Notification
	createError        error
	updateIsReadCalled bool
	updateIsReadError  error
	notifications      []model.Notification
	latestOverdue      *model.Notification
	latestError        error
}

func (m *mockNotificationRepository) Create(ctx context.Context, tx *sqlx.Tx, notification *model.Notification) error {
	if m.createError != nil {
		return m.createError
	}
	notification.ID = int64(len(m.created) + 1)
	m.created = append(m.created, *notification)
	return nil
}

func (m *mockNotificationRepository) GetByID(ctx context.Context, notificationID int64) (*model.Notification, error) {
	if m.getByIDError != nil {
		return nil, m.getByIDError
	}
	return m.notification, nil
}

func (m *mockNotificationRepository) UpdateIsRead(ctx context.Context, notificationID int64, isRead bool) error {
	m.updateIsReadCalled = true
	return m.updateIsReadError
}

func (m *mockNotificationRepository) ListByPatron(ctx context.Context, patronID string, isRead *bool) ([]model.Notification, error) {
	return m.notifications, nil
}

func (m *mockNotificationRepository) LatestOverdueForBook(ctx context.Context, patronID, bookTitle string) (*model.Notification, error) {
	return m.latestOverdue, m.latestError
}
