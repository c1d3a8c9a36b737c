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

// ReservationRepository は予約の永続化を担当するインターフェースです
type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	GetByID(ctx context.Context, reservationID int64) (*model.Reservation, error)
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, reservationID int64, status model.ReservationStatus) error
	GetOldestPending(ctx context.Context, tx *sqlx.Tx, bookID int64) (*model.Reservation, error)
	ListAll(ctx context.Context) ([]model.Reservation, error)
	ListByPatron(ctx context.Context, patronID string) ([]model.Reservation, error)
}

// ReservationRepositoryImpl はReservationRepositoryの実装です
type ReservationRepositoryImpl struct {
	db *DB
}

// NewReservationRepository は新しいReservationRepositoryを作成します
func NewReservationRepository(db *DB) *ReservationRepositoryImpl {
	return &ReservationRepositoryImpl{db: db}
}

// Create は新しい予約をpendingステータスで作成します
func (r *ReservationRepositoryImpl) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO reservations (
			patron_id, book_id, reservation_date, status, updated_at
		) VALUES (
			$1, $2, $3, $4, $3
		)
		RETURNING reservation_id`

	err := r.db.QueryRowContext(ctx, query,
		reservation.PatronID,
		reservation.BookID,
		reservation.ReservationDate,
		reservation.Status,
	).Scan(&reservation.ID)

	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	return nil
}

// GetByID は指定されたIDの予約を取得します
func (r *ReservationRepositoryImpl) GetByID(ctx context.Context, reservationID int64) (*model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.GetByID")
	defer seg.Close(nil)

	query := `
		SELECT reservation_id, patron_id, book_id, reservation_date, status, updated_at
		FROM reservations
		WHERE reservation_id = $1`

	var reservation model.Reservation
	if err := r.db.GetContext(ctx, &reservation, query, reservationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation %d: %w", reservationID, model.ErrNotFound)
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	return &reservation, nil
}

// UpdateStatus はトランザクション内で予約のステータスを更新します
func (r *ReservationRepositoryImpl) UpdateStatus(ctx context.Context, tx *sqlx.Tx, reservationID int64, status model.ReservationStatus) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.UpdateStatus")
	defer seg.Close(nil)

	query := `
		UPDATE reservations
		SET status = $1,
			updated_at = $2
		WHERE reservation_id = $3`

	result, err := tx.ExecContext(ctx, query, status, time.Now(), reservationID)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to update reservation status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("reservation %d: %w", reservationID, model.ErrNotFound)
	}

	return nil
}

// GetOldestPending はトランザクション内で指定蔵書の最も古いpending予約を取得します
// 該当がない場合は(nil, nil)を返します
func (r *ReservationRepositoryImpl) GetOldestPending(ctx context.Context, tx *sqlx.Tx, bookID int64) (*model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.GetOldestPending")
	defer seg.Close(nil)

	query := `
		SELECT reservation_id, patron_id, book_id, reservation_date, status, updated_at
		FROM reservations
		WHERE book_id = $1
		AND status = $2
		ORDER BY reservation_date ASC
		LIMIT 1`

	var reservation model.Reservation
	err := tx.GetContext(ctx, &reservation, query, bookID, model.ReservationStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to get oldest pending reservation: %w", err)
	}

	return &reservation, nil
}

// ListAll はすべての予約を予約日の降順で取得します
func (r *ReservationRepositoryImpl) ListAll(ctx context.Context) ([]model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.ListAll")
	defer seg.Close(nil)

	query := `
		SELECT reservation_id, patron_id, book_id, reservation_date, status, updated_at
		FROM reservations
		ORDER BY reservation_date DESC`

	var reservations []model.Reservation
	if err := r.db.SelectContext(ctx, &reservations, query); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	return reservations, nil
}

// ListByPatron は指定された利用者の予約を予約日の降順で取得します
func (r *ReservationRepositoryImpl) ListByPatron(ctx context.Context, patronID string) ([]model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationRepository.ListByPatron")
	defer seg.Close(nil)

	query := `
		SELECT reservation_id, patron_id, book_id, reservation_date, status, updated_at
		FROM reservations
		WHERE patron_id = $1
		ORDER BY reservation_date DESC`

	var reservations []model.Reservation
	if err := r.db.SelectContext(ctx, &reservations, query, patronID); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to list reservations for patron %s: %w", patronID, err)
	}

	return reservations, nil
}
