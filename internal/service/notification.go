package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"

	"github.com/tosho-dev/tosho-backend/internal/model"
	"github.com/tosho-dev/tosho-backend/internal/repository"
)

// NotificationService は利用者への通知の発行・参照を担当します
type NotificationService struct {
	tx               repository.TxManager
	notificationRepo repository.NotificationRepository
	nowFunc          func() time.Time
}

// NewNotificationService は新しいNotificationServiceを作成します
func NewNotificationService(tx repository.TxManager, notificationRepo repository.NotificationRepository) *NotificationService {
	return &NotificationService{
		tx:               tx,
		notificationRepo: notificationRepo,
		nowFunc:          time.Now,
	}
}

// Emit は任意の通知を発行します(司書のみ)
func (s *NotificationService) Emit(ctx context.Context, req model.Requester, patronID, message string, notificationType model.NotificationType) (*model.Notification, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationService.Emit")
	defer seg.Close(nil)

	if !req.IsLibrarian() {
		return nil, fmt.Errorf("emit notification: %w", model.ErrForbidden)
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("notification message is required: %w", model.ErrValidation)
	}
	if !notificationType.IsValid() {
		return nil, fmt.Errorf("unknown notification type %q: %w", notificationType, model.ErrValidation)
	}

	notification := &model.Notification{
		PatronID:  patronID,
		Message:   message,
		Type:      notificationType,
		IsRead:    false,
		CreatedAt: s.nowFunc(),
	}
	err := s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		return s.notificationRepo.Create(ctx, tx, notification)
	})
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	return notification, nil
}

// MarkRead は通知を既読にします
// 宛先の利用者本人または司書のみ実行できます
func (s *NotificationService) MarkRead(ctx context.Context, req model.Requester, notificationID int64) (*model.Notification, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationService.MarkRead")
	defer seg.Close(nil)

	notification, err := s.notificationRepo.GetByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}

	if !req.CanActOn(notification.PatronID) {
		return nil, fmt.Errorf("mark notification read: %w", model.ErrForbidden)
	}

	if !notification.IsRead {
		if err := s.notificationRepo.UpdateIsRead(ctx, notificationID, true); err != nil {
			seg.Close(err)
			return nil, err
		}
		notification.IsRead = true
	}

	return notification, nil
}

// List は自分宛ての通知一覧を取得します
// isReadを指定すると既読状態で絞り込みます
func (s *NotificationService) List(ctx context.Context, req model.Requester, isRead *bool) ([]model.Notification, error) {
	return s.notificationRepo.ListByPatron(ctx, req.PatronID, isRead)
}
