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

// NotificationRepository は通知の永続化を担当するインターフェースです
type NotificationRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, notification *model.Notification) error
	GetByID(ctx context.Context, notificationID int64) (*model.Notification, error)
	UpdateIsRead(ctx context.Context, notificationID int64, isRead bool) error
	ListByPatron(ctx context.Context, patronID string, isRead *bool) ([]model.Notification, error)
	LatestOverdueForBook(ctx context.Context, patronID, bookTitle string) (*model.Notification, error)
}

// NotificationRepositoryImpl は通知の永続化を担当します
type NotificationRepositoryImpl struct {
	db *DB
}

// NewNotificationRepository は新しいNotificationRepositoryを作成します
func NewNotificationRepository(db *DB) *NotificationRepositoryImpl {
	return &NotificationRepositoryImpl{db: db}
}

// Create はトランザクション内で単一の通知を作成します
func (r *NotificationRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, notification *model.Notification) error {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO notifications (
			patron_id, message, type, is_read, created_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
		RETURNING notification_id`

	err := tx.QueryRowContext(ctx, query,
		notification.PatronID,
		notification.Message,
		notification.Type,
		notification.IsRead,
		notification.CreatedAt,
	).Scan(&notification.ID)

	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// GetByID は指定されたIDの通知を取得します
func (r *NotificationRepositoryImpl) GetByID(ctx context.Context, notificationID int64) (*model.Notification, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.GetByID")
	defer seg.Close(nil)

	query := `
		SELECT notification_id, patron_id, message, type, is_read, created_at
		FROM notifications
		WHERE notification_id = $1`

	var notification model.Notification
	if err := r.db.GetContext(ctx, &notification, query, notificationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification %d: %w", notificationID, model.ErrNotFound)
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return &notification, nil
}

// UpdateIsRead は通知の既読状態を更新します
func (r *NotificationRepositoryImpl) UpdateIsRead(ctx context.Context, notificationID int64, isRead bool) error {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.UpdateIsRead")
	defer seg.Close(nil)

	query := `
		UPDATE notifications
		SET is_read = $1
		WHERE notification_id = $2`

	result, err := r.db.ExecContext(ctx, query, isRead, notificationID)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to update notification is_read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("notification %d: %w", notificationID, model.ErrNotFound)
	}

	return nil
}

// ListByPatron は指定された利用者の通知を作成日の降順で取得します
// isReadを指定すると既読状態で絞り込みます
func (r *NotificationRepositoryImpl) ListByPatron(ctx context.Context, patronID string, isRead *bool) ([]model.Notification, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.ListByPatron")
	defer seg.Close(nil)

	query := `
		SELECT notification_id, patron_id, message, type, is_read, created_at
		FROM notifications
		WHERE patron_id = $1`

	args := []interface{}{patronID}
	if isRead != nil {
		args = append(args, *isRead)
		query += " AND is_read = $2"
	}
	query += " ORDER BY created_at DESC"

	var notifications []model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

// LatestOverdueForBook は指定利用者への延滞通知のうち、メッセージに書名を含む最新の1件を取得します
// 延滞スイープの重複判定に利用されます。該当がない場合は(nil, nil)を返します
func (r *NotificationRepositoryImpl) LatestOverdueForBook(ctx context.Context, patronID, bookTitle string) (*model.Notification, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.LatestOverdueForBook")
	defer seg.Close(nil)

	query := `
		SELECT notification_id, patron_id, message, type, is_read, created_at
		FROM notifications
		WHERE patron_id = $1
		AND type = $2
		AND message LIKE '%' || $3 || '%'
		ORDER BY created_at DESC
		LIMIT 1`

	var notification model.Notification
	err := r.db.GetContext(ctx, &notification, query, patronID, model.NotificationTypeOverdue, bookTitle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to get latest overdue notification: %w", err)
	}

	return &notification, nil
}
