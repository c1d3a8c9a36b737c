package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/tosho-dev/tosho-backend/internal/model"
	"github.com/tosho-dev/tosho-backend/internal/repository"
)

// LoanService は貸出・返却処理を担当します
// 在庫カウンターの増減は必ず貸出・返却と同一トランザクションで行います
type LoanService struct {
	tx               repository.TxManager
	loanRepo         repository.LoanRepository
	bookRepo         repository.BookRepository
	fineRepo         repository.FineRepository
	reservationRepo  repository.ReservationRepository
	notificationRepo repository.NotificationRepository
	nowFunc          func() time.Time
}

// NewLoanService は新しいLoanServiceを作成します
func NewLoanService(
	tx repository.TxManager,
	loanRepo repository.LoanRepository,
	bookRepo repository.BookRepository,
	fineRepo repository.FineRepository,
	reservationRepo repository.ReservationRepository,
	notificationRepo repository.NotificationRepository,
) *LoanService {
	return &LoanService{
		tx:               tx,
		loanRepo:         loanRepo,
		bookRepo:         bookRepo,
		fineRepo:         fineRepo,
		reservationRepo:  reservationRepo,
		notificationRepo: notificationRepo,
		nowFunc:          time.Now,
	}
}

// ReturnResult は返却処理の結果です
// 延滞金が新規発行された場合はその金額を含みます
type ReturnResult struct {
	Loan       *model.Loan     `json:"loan"`
	LateDays   int             `json:"late_days"`
	FineIssued bool            `json:"fine_issued"`
	FineAmount decimal.Decimal `json:"fine_amount"`
}

// Issue は蔵書を貸し出します(司書のみ)
// 在庫の減算と貸出の作成は同一トランザクションで実行され、
// 在庫がない場合はErrUnavailableを返して何も作成しません
func (s *LoanService) Issue(ctx context.Context, req model.Requester, patronID string, bookID int64, dueDate time.Time) (*model.Loan, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "LoanService.Issue")
	defer seg.Close(nil)

	if !req.IsLibrarian() {
		return nil, fmt.Errorf("issue loan: %w", model.ErrForbidden)
	}

	// 存在しない蔵書はNotFoundとして区別する
	if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
		return nil, err
	}

	loan := &model.Loan{
		PatronID: patronID,
		BookID:   bookID,
		LoanDate: s.nowFunc(),
		DueDate:  model.ToDate(dueDate),
	}

	err := s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.bookRepo.DecrementAvailable(ctx, tx, bookID); err != nil {
			return err
		}
		return s.loanRepo.Create(ctx, tx, loan)
	})
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	return loan, nil
}

// Return は貸出を返却処理します(司書のみ)
// 返却日の設定・在庫の加算・延滞金の発行・通知・予約キューの前進を
// 1つのトランザクションで実行します
func (s *LoanService) Return(ctx context.Context, req model.Requester, loanID int64) (*ReturnResult, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "LoanService.Return")
	defer seg.Close(nil)

	if !req.IsLibrarian() {
		return nil, fmt.Errorf("return loan: %w", model.ErrForbidden)
	}

	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.IsOpen() {
		return nil, fmt.Errorf("loan %d: %w", loanID, model.ErrAlreadyReturned)
	}

	title, err := s.bookRepo.GetTitleByID(ctx, loan.BookID)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc()
	today := model.ToDate(now)
	lateDays := model.LateDays(loan.DueDate, today)

	result := &ReturnResult{
		Loan:       loan,
		LateDays:   lateDays,
		FineAmount: decimal.Zero,
	}

	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		// MarkReturnedの行ガードにより、並行する返却は片方だけが成功する
		if err := s.loanRepo.MarkReturned(ctx, tx, loanID, today); err != nil {
			return err
		}
		if err := s.bookRepo.IncrementAvailable(ctx, tx, loan.BookID); err != nil {
			return err
		}

		if lateDays > 0 {
			issued, amount, err := s.issueFineIfAbsent(ctx, tx, loan, title, lateDays, now)
			if err != nil {
				return err
			}
			result.FineIssued = issued
			result.FineAmount = amount
		}

		return s.advanceReservationQueue(ctx, tx, loan.BookID, title, now)
	})
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	loan.ReturnDate = &today
	return result, nil
}

// issueFineIfAbsent は貸出に対する延滞金が未発行の場合のみ発行し、利用者に通知します
func (s *LoanService) issueFineIfAbsent(ctx context.Context, tx *sqlx.Tx, loan *model.Loan, title string, lateDays int, now time.Time) (bool, decimal.Decimal, error) {
	exists, err := s.fineRepo.ExistsForLoan(ctx, tx, loan.ID)
	if err != nil {
		return false, decimal.Zero, err
	}
	if exists {
		return false, decimal.Zero, nil
	}

	amount := model.FineAmount(lateDays)
	fine := &model.Fine{
		PatronID:   loan.PatronID,
		LoanID:     loan.ID,
		Amount:     amount,
		Paid:       false,
		AutoIssued: true,
		DateIssued: now,
	}
	if err := s.fineRepo.Create(ctx, tx, fine); err != nil {
		return false, decimal.Zero, err
	}

	notification := model.NewFineIssuedNotification(loan.PatronID, title, lateDays, amount, now)
	if err := s.notificationRepo.Create(ctx, tx, &notification); err != nil {
		return false, decimal.Zero, err
	}

	return true, amount, nil
}

// advanceReservationQueue は在庫が空いた蔵書の予約キューを前進させます
// 最も古いpending予約を1件だけreadyにし、利用者に通知します
func (s *LoanService) advanceReservationQueue(ctx context.Context, tx *sqlx.Tx, bookID int64, title string, now time.Time) error {
	available, err := s.bookRepo.GetAvailableCopies(ctx, tx, bookID)
	if err != nil {
		return err
	}
	if available <= 0 {
		return nil
	}

	reservation, err := s.reservationRepo.GetOldestPending(ctx, tx, bookID)
	if err != nil {
		return err
	}
	if reservation == nil {
		return nil
	}

	if err := s.reservationRepo.UpdateStatus(ctx, tx, reservation.ID, model.ReservationStatusReady); err != nil {
		return err
	}

	notification := model.NewReservationReadyNotification(reservation.PatronID, title, now)
	return s.notificationRepo.Create(ctx, tx, &notification)
}

// ListLoans は貸出一覧を取得します
// 司書は全件、学生は自分の貸出のみ参照できます
func (s *LoanService) ListLoans(ctx context.Context, req model.Requester) ([]model.Loan, error) {
	if req.IsLibrarian() {
		return s.loanRepo.ListAll(ctx)
	}
	return s.loanRepo.ListByPatron(ctx, req.PatronID)
}
