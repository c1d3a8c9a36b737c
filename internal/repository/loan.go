package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"

	"github.com/tosho-dev/tosho-backend/internal/model"
)

// LoanRepository は貸出の永続化を担当するインターフェースです
type LoanRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, loan *model.Loan) error
	GetByID(ctx context.Context, loanID int64) (*model.Loan, error)
	MarkReturned(ctx context.Context, tx *sqlx.Tx, loanID int64, returnDate time.Time) error
	ListAll(ctx context.Context) ([]model.Loan, error)
	ListByPatron(ctx context.Context, patronID string) ([]model.Loan, error)
	GetOverdueLoans(ctx context.Context, today time.Time) ([]model.OverdueLoan, error)
}

// LoanRepositoryImpl はLoanRepositoryの実装です
type LoanRepositoryImpl struct {
	db *DB
}

// NewLoanRepository は新しいLoanRepositoryを作成します
func NewLoanRepository(db *DB) *LoanRepositoryImpl {
	return &LoanRepositoryImpl{db: db}
}

// Create はトランザクション内で貸出を作成します
func (r *LoanRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, loan *model.Loan) error {
	ctx, seg := xray.BeginSubsegment(ctx, "LoanRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO loans (
			patron_id, book_id, loan_date, due_date
		) VALUES (
			$1, $2, $3, $4
		)
		RETURNING loan_id`

	err := tx.QueryRowContext(ctx, query,
		loan.PatronID,
		loan.BookID,
		loan.LoanDate,
		loan.DueDate,
	).Scan(&loan.ID)

	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to create loan: %w", err)
	}

	return nil
}

// GetByID は指定されたIDの貸出を取得します
func (r *LoanRepositoryImpl) GetByID(ctx context.Context, loanID int64) (*model.Loan, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "LoanRepository.GetByID")
	defer seg.Close(nil)

	query := `
		SELECT loan_id, patron_id, book_id, loan_date, due_date, return_date
		FROM loans
		WHERE loan_id = $1`

	var loan model.Loan
	if err := r.db.GetContext(ctx, &loan, query, loanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("loan %d: %w", loanID, model.ErrNotFound)
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}

	return &loan, nil
}

// MarkReturned はトランザクション内で返却日を設定します
// 返却済みの貸出には適用されません(return_dateは一度設定されたら変更されません)
func (r *LoanRepositoryImpl) MarkReturned(ctx context.Context, tx *sqlx.Tx, loanID int64, returnDate time.Time) error {
	ctx, seg := xray.BeginSubsegment(ctx, "LoanRepository.MarkReturned")
	defer seg.Close(nil)

	query := `
		UPDATE loans
		SET return_date = $1
		WHERE loan_id = $2
		AND return_date IS NULL`

	result, err := tx.ExecContext(ctx, query, returnDate, loanID)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to mark loan as returned: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("loan %d: %w", loanID, model.ErrAlreadyReturned)
	}

	return nil
}

// ListAll はすべての貸出を貸出日の降順で取得します
func (r *LoanRepositoryImpl) ListAll(ctx context.Context) ([]model.Loan, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "LoanRepository.ListAll")
	defer seg.Close(nil)

	query := `
		SELECT loan_id, patron_id, book_id, loan_date, due_date, return_date
		FROM loans
		ORDER BY loan_date DESC`

	var loans []model.Loan
	if err := r.db.SelectContext(ctx, &loans, query); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}

	return loans, nil
}

// ListByPatron は指定された利用者の貸出を貸出日の降順で取得します
func (r *LoanRepositoryImpl) ListByPatron(ctx context.Context, patronID string) ([]model.Loan, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "LoanRepository.ListByPatron")
	defer seg.Close(nil)

	query := `
		SELECT loan_id, patron_id, book_id, loan_date, due_date, return_date
		FROM loans
		WHERE patron_id = $1
		ORDER BY loan_date DESC`

	var loans []model.Loan
	if err := r.db.SelectContext(ctx, &loans, query, patronID); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to list loans for patron %s: %w", patronID, err)
	}

	return loans, nil
}

// GetOverdueLoans は指定日時点で延滞中の貸出を書名付きで取得します
func (r *LoanRepositoryImpl) GetOverdueLoans(ctx context.Context, today time.Time) ([]model.OverdueLoan, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "LoanRepository.GetOverdueLoans")
	defer seg.Close(nil)

	query := `
		SELECT l.loan_id, l.patron_id, l.book_id, b.title, l.due_date
		FROM loans l
		JOIN books b ON b.book_id = l.book_id
		WHERE l.return_date IS NULL
		AND l.due_date < $1
		ORDER BY l.due_date ASC`

	var loans []model.OverdueLoan
	if err := r.db.SelectContext(ctx, &loans, query, model.ToDate(today)); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to get overdue loans: %w", err)
	}

	return loans, nil
}
