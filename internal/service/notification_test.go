package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"

	"github.com/tosho-dev/tosho-backend/internal/model"
)

func newTestNotificationService(notificationRepo *mockNotificationRepository, now time.Time) *NotificationService {
	return &NotificationService{
		tx:               &mockTxManager{},
		notificationRepo: notificationRepo,
		nowFunc:          func() time.Time { return now },
	}
}

func TestNotificationService_Emit(t *testing.T) {
	// X-Rayのセグメントを設定
	ctx, seg := xray.BeginSegment(context.Background(), "TestNotificationService_Emit")
	defer seg.Close(nil)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name             string
		requester        model.Requester
		message          string
		notificationType model.NotificationType
		wantErr          error
	}{
		{
			name:             "司書は通知を発行できる",
			requester:        testLibrarian,
			message:          "閲覧室は本日17時で閉室します",
			notificationType: model.NotificationTypeAlert,
		},
		{
			name:             "学生は通知を発行できない",
			requester:        testStudent,
			message:          "test",
			notificationType: model.NotificationTypeAlert,
			wantErr:          model.ErrForbidden,
		},
		{
			name:             "空のメッセージは発行できない",
			requester:        testLibrarian,
			message:          "   ",
			notificationType: model.NotificationTypeAlert,
			wantErr:          model.ErrValidation,
		},
		{
			name:             "未定義の通知種別は発行できない",
			requester:        testLibrarian,
			message:          "test",
			notificationType: model.NotificationType("broadcast"),
			wantErr:          model.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notificationRepo := &mockNotificationRepository{}
			svc := newTestNotificationService(notificationRepo, now)

			notification, err := svc.Emit(ctx, tt.requester, testStudent.PatronID, tt.message, tt.notificationType)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if len(notificationRepo.created) != 0 {
					t.Error("notification should not be created on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if notification.IsRead {
				t.Error("new notification should be unread")
			}
			if notification.PatronID != testStudent.PatronID {
				t.Errorf("unexpected recipient %s", notification.PatronID)
			}
		})
	}
}

func TestNotificationService_MarkRead(t *testing.T) {
	// X-Rayのセグメントを設定
	ctx, seg := xray.BeginSegment(context.Background(), "TestNotificationService_MarkRead")
	defer seg.Close(nil)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("本人は自分の通知を既読にできる", func(t *testing.T) {
		notificationRepo := &mockNotificationRepository{
			notification: &model.Notification{ID: 1, PatronID: testStudent.PatronID},
		}
		svc := newTestNotificationService(notificationRepo, now)

		notification, err := svc.MarkRead(ctx, testStudent, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !notification.IsRead || !notificationRepo.updateIsReadCalled {
			t.Error("notification should be marked as read")
		}
	})

	t.Run("他人の通知は既読にできない", func(t *testing.T) {
		notificationRepo := &mockNotificationRepository{
			notification: &model.Notification{ID: 1, PatronID: "stu-002"},
		}
		svc := newTestNotificationService(notificationRepo, now)

		_, err := svc.MarkRead(ctx, testStudent, 1)
		if !errors.Is(err, model.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if notificationRepo.updateIsReadCalled {
			t.Error("notification should not be updated")
		}
	})

	t.Run("司書は他人の通知を既読にできる", func(t *testing.T) {
		notificationRepo := &mockNotificationRepository{
			notification: &model.Notification{ID: 1, PatronID: testStudent.PatronID},
		}
		svc := newTestNotificationService(notificationRepo, now)

		if _, err := svc.MarkRead(ctx, testLibrarian, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("既読の通知は更新をスキップする", func(t *testing.T) {
		notificationRepo := &mockNotificationRepository{
			notification: &model.Notification{ID: 1, PatronID: testStudent.PatronID, IsRead: true},
		}
		svc := newTestNotificationService(notificationRepo, now)

		notification, err := svc.MarkRead(ctx, testStudent, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !notification.IsRead {
			t.Error("notification should stay read")
		}
		if notificationRepo.updateIsReadCalled {
			t.Error("update should be skipped for already-read notification")
		}
	})
}
