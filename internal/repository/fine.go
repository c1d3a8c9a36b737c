package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"

	"github.com/tosho-dev/tosho-backend/internal/model"
)

// FineRepository は延滞金の永続化を担当するインターフェースです
type FineRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, fine *model.Fine) error
	GetByID(ctx context.Context, fineID int64) (*model.Fine, error)
	ExistsForLoan(ctx context.Context, tx *sqlx.Tx, loanID int64) (bool, error)
	MarkPaid(ctx context.Context, fineID int64) error
	Delete(ctx context.Context, fineID int64) error
	ListAll(ctx context.Context, paid *bool) ([]model.Fine, error)
	ListByPatron(ctx context.Context, patronID string, paid *bool) ([]model.Fine, error)
}

// FineRepositoryImpl はFineRepositoryの実装です
type FineRepositoryImpl struct {
	db *DB
}

// NewFineRepository は新しいFineRepositoryを作成します
func NewFineRepository(db *DB) *FineRepositoryImpl {
	return &FineRepositoryImpl{db: db}
}

// Create はトランザクション内で延滞金を作成します
func (r *FineRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, fine *model.Fine) error {
	ctx, seg := xray.BeginSubsegment(ctx, "FineRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO fines (
			patron_id, loan_id, amount, paid, auto_issued, date_issued
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING fine_id`

	err := tx.QueryRowContext(ctx, query,
		fine.PatronID,
		fine.LoanID,
		fine.Amount,
		fine.Paid,
		fine.AutoIssued,
		fine.DateIssued,
	).Scan(&fine.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("auto fine for loan %d already exists: %w", fine.LoanID, model.ErrValidation)
		}
		seg.Close(err)
		return fmt.Errorf("failed to create fine: %w", err)
	}

	return nil
}

// GetByID は指定されたIDの延滞金を取得します
func (r *FineRepositoryImpl) GetByID(ctx context.Context, fineID int64) (*model.Fine, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "FineRepository.GetByID")
	defer seg.Close(nil)

	query := `
		SELECT fine_id, patron_id, loan_id, amount, paid, auto_issued, date_issued
		FROM fines
		WHERE fine_id = $1`

	var fine model.Fine
	if err := r.db.GetContext(ctx, &fine, query, fineID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fine %d: %w", fineID, model.ErrNotFound)
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to get fine: %w", err)
	}

	return &fine, nil
}

// ExistsForLoan はトランザクション内で指定貸出に対する延滞金の有無を返します
func (r *FineRepositoryImpl) ExistsForLoan(ctx context.Context, tx *sqlx.Tx, loanID int64) (bool, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "FineRepository.ExistsForLoan")
	defer seg.Close(nil)

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM fines
			WHERE loan_id = $1
		)`

	var exists bool
	if err := tx.QueryRowContext(ctx, query, loanID).Scan(&exists); err != nil {
		seg.Close(err)
		return false, fmt.Errorf("failed to check existing fine: %w", err)
	}

	return exists, nil
}

// MarkPaid は延滞金を支払い済みにします
// 支払い済みの延滞金には適用されません
func (r *FineRepositoryImpl) MarkPaid(ctx context.Context, fineID int64) error {
	ctx, seg := xray.BeginSubsegment(ctx, "FineRepository.MarkPaid")
	defer seg.Close(nil)

	query := `
		UPDATE fines
		SET paid = TRUE
		WHERE fine_id = $1
		AND paid = FALSE`

	result, err := r.db.ExecContext(ctx, query, fineID)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to mark fine as paid: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("fine %d: %w", fineID, model.ErrAlreadyPaid)
	}

	return nil
}

// Delete は延滞金を無条件に削除します(管理上の訂正用)
func (r *FineRepositoryImpl) Delete(ctx context.Context, fineID int64) error {
	ctx, seg := xray.BeginSubsegment(ctx, "FineRepository.Delete")
	defer seg.Close(nil)

	query := `
		DELETE FROM fines
		WHERE fine_id = $1`

	result, err := r.db.ExecContext(ctx, query, fineID)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to delete fine: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("fine %d: %w", fineID, model.ErrNotFound)
	}

	return nil
}

// ListAll はすべての延滞金を発行日の降順で取得します
// paidを指定すると支払い状態で絞り込みます
func (r *FineRepositoryImpl) ListAll(ctx context.Context, paid *bool) ([]model.Fine, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "FineRepository.ListAll")
	defer seg.Close(nil)

	query := `
		SELECT fine_id, patron_id, loan_id, amount, paid, auto_issued, date_issued
		FROM fines`

	args := []interface{}{}
	if paid != nil {
		args = append(args, *paid)
		query += " WHERE paid = $1"
	}
	query += " ORDER BY date_issued DESC"

	var fines []model.Fine
	if err := r.db.SelectContext(ctx, &fines, query, args...); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to list fines: %w", err)
	}

	return fines, nil
}

// ListByPatron は指定された利用者の延滞金を発行日の降順で取得します
func (r *FineRepositoryImpl) ListByPatron(ctx context.Context, patronID string, paid *bool) ([]model.Fine, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "FineRepository.ListByPatron")
	defer seg.Close(nil)

	query := `
		SELECT fine_id, patron_id, loan_id, amount, paid, auto_issued, date_issued
		FROM fines
		WHERE patron_id = $1`

	args := []interface{}{patronID}
	if paid != nil {
		args = append(args, *paid)
		query += " AND paid = $2"
	}
	query += " ORDER BY date_issued DESC"

	var fines []model.Fine
	if err := r.db.SelectContext(ctx, &fines, query, args...); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to list fines for patron %s: %w", patronID, err)
	}

	return fines, nil
}
