package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"

	"github.com/tosho-dev/tosho-backend/internal/model"
	"github.com/tosho-dev/tosho-backend/internal/repository"
)

// ReservationService は予約キューの操作を担当します
type ReservationService struct {
	tx               repository.TxManager
	reservationRepo  repository.ReservationRepository
	bookRepo         repository.BookRepository
	notificationRepo repository.NotificationRepository
	nowFunc          func() time.Time
}

// NewReservationService は新しいReservationServiceを作成します
func NewReservationService(
	tx repository.TxManager,
	reservationRepo repository.ReservationRepository,
	bookRepo repository.BookRepository,
	notificationRepo repository.NotificationRepository,
) *ReservationService {
	return &ReservationService{
		tx:               tx,
		reservationRepo:  reservationRepo,
		bookRepo:         bookRepo,
		notificationRepo: notificationRepo,
		nowFunc:          time.Now,
	}
}

// Create は予約を作成します
// 学生は自分名義の予約のみ作成でき、司書は任意の利用者名義で作成できます
// 削除済みの蔵書への予約はNotFoundになります
func (s *ReservationService) Create(ctx context.Context, req model.Requester, patronID string, bookID int64) (*model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationService.Create")
	defer seg.Close(nil)

	if !req.CanActOn(patronID) {
		return nil, fmt.Errorf("create reservation: %w", model.ErrForbidden)
	}

	if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
		return nil, err
	}

	reservation := &model.Reservation{
		PatronID:        patronID,
		BookID:          bookID,
		ReservationDate: s.nowFunc(),
		Status:          model.ReservationStatusPending,
	}
	if err := s.reservationRepo.Create(ctx, reservation); err != nil {
		seg.Close(err)
		return nil, err
	}

	reservation.UpdatedAt = reservation.ReservationDate
	return reservation, nil
}

// Cancel は予約をキャンセルします
// 予約者本人または司書のみ実行でき、キャンセル済みの予約には適用されません
func (s *ReservationService) Cancel(ctx context.Context, req model.Requester, reservationID int64) (*model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationService.Cancel")
	defer seg.Close(nil)

	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if !req.CanActOn(reservation.PatronID) {
		return nil, fmt.Errorf("cancel reservation: %w", model.ErrForbidden)
	}

	if err := model.ValidateTransition(reservation.Status, model.ReservationStatusCancelled); err != nil {
		return nil, fmt.Errorf("reservation %d: %w", reservationID, err)
	}

	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		return s.reservationRepo.UpdateStatus(ctx, tx, reservationID, model.ReservationStatusCancelled)
	})
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	reservation.Status = model.ReservationStatusCancelled
	return reservation, nil
}

// UpdateStatus は予約のステータスを更新します(司書のみ)
// readyへの遷移は在庫がある場合に限られます
func (s *ReservationService) UpdateStatus(ctx context.Context, req model.Requester, reservationID int64, next model.ReservationStatus) (*model.Reservation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReservationService.UpdateStatus")
	defer seg.Close(nil)

	if !req.IsLibrarian() {
		return nil, fmt.Errorf("update reservation status: %w", model.ErrForbidden)
	}

	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if err := model.ValidateTransition(reservation.Status, next); err != nil {
		return nil, fmt.Errorf("reservation %d: %w", reservationID, err)
	}

	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		if next == model.ReservationStatusReady {
			available, err := s.bookRepo.GetAvailableCopies(ctx, tx, reservation.BookID)
			if err != nil {
				return err
			}
			if available <= 0 {
				return fmt.Errorf("book %d has no available copies: %w", reservation.BookID, model.ErrUnavailable)
			}
		}
		if err := s.reservationRepo.UpdateStatus(ctx, tx, reservationID, next); err != nil {
			return err
		}
		if next == model.ReservationStatusReady {
			title, err := s.bookRepo.GetTitleByID(ctx, reservation.BookID)
			if err != nil {
				return err
			}
			notification := model.NewReservationReadyNotification(reservation.PatronID, title, s.nowFunc())
			return s.notificationRepo.Create(ctx, tx, &notification)
		}
		return nil
	})
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	reservation.Status = next
	return reservation, nil
}

// List は予約一覧を取得します
// 司書は全件、学生は自分の予約のみ参照できます
func (s *ReservationService) List(ctx context.Context, req model.Requester) ([]model.Reservation, error) {
	if req.IsLibrarian() {
		return s.reservationRepo.ListAll(ctx)
	}
	return s.reservationRepo.ListByPatron(ctx, req.PatronID)
}
