package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"

	"github.com/tosho-dev/tosho-backend/internal/config"
	"github.com/tosho-dev/tosho-backend/internal/model"
)

// mockTxManager はテスト用のトランザクションマネージャです
type mockTxManager struct{}

func (m *mockTxManager) RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

// mockLoanRepository はテスト用のモックリポジトリです
type mockLoanRepository struct {
	overdueLoans []model.OverdueLoan
	overdueError error
}

func (m *mockLoanRepository) Create(ctx context.Context, tx *sqlx.Tx, loan *model.Loan) error {
	return nil
}

func (m *mockLoanRepository) GetByID(ctx context.Context, loanID int64) (*model.Loan, error) {
	return nil, nil
}

func (m *mockLoanRepository) MarkReturned(ctx context.Context, tx *sqlx.Tx, loanID int64, returnDate time.Time) error {
	return nil
}

func (m *mockLoanRepository) ListAll(ctx context.Context) ([]model.Loan, error) {
	return nil, nil
}

func (m *mockLoanRepository) ListByPatron(ctx context.Context, patronID string) ([]model.Loan, error) {
	return nil, nil
}

func (m *mockLoanRepository) GetOverdueLoans(ctx context.Context, today time.Time) ([]model.OverdueLoan, error) {
	return m.overdueLoans, m.overdueError
}

// mockNotificationRepository はテスト用のモックリポジトリです
type mockNotificationRepository struct {
	created       []model.Notification
	createError   error
	latestByTitle map[string]*model.Notification
	latestError   error
}

func (m *mockNotificationRepository) Create(ctx context.Context, tx *sqlx.Tx, notification *model.Notification) error {
	if m.createError != nil {
		return m.createError
	}
	m.created = append(m.created, *notification)
	return nil
}

func (m *mockNotificationRepository) GetByID(ctx context.Context, notificationID int64) (*model.Notification, error) {
	return nil, nil
}

func (m *mockNotificationRepository) UpdateIsRead(ctx context.Context, notificationID int64, isRead bool) error {
	return nil
}

func (m *mockNotificationRepository) ListByPatron(ctx context.Context, patronID string, isRead *bool) ([]model.Notification, error) {
	return nil, nil
}

func (m *mockNotificationRepository) LatestOverdueForBook(ctx context.Context, patronID, bookTitle string) (*model.Notification, error) {
	if m.latestError != nil {
		return nil, m.latestError
	}
	return m.latestByTitle[bookTitle], nil
}

// newTestOverdueSweepService はテスト用のOverdueSweepServiceを作成します
func newTestOverdueSweepService(loanRepo *mockLoanRepository, notificationRepo *mockNotificationRepository, now time.Time) *OverdueSweepService {
	return &OverdueSweepService{
		tx:               &mockTxManager{},
		loanRepo:         loanRepo,
		notificationRepo: notificationRepo,
		cfg:              &config.Config{},
		nowFunc:          func() time.Time { return now },
	}
}

func TestOverdueSweepService_TriggerOverdue(t *testing.T) {
	// X-Rayのセグメントを設定
	ctx, seg := xray.BeginSegment(context.Background(), "TestOverdueSweepService_TriggerOverdue")
	defer seg.Close(nil)

	today := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	overdue := model.OverdueLoan{
		LoanID:   1,
		PatronID: "stu-001",
		BookID:   10,
		Title:    "三四郎",
		DueDate:  today.AddDate(0, 0, -3),
	}

	tests := []struct {
		name        string
		loans       []model.OverdueLoan
		latestAge   time.Duration
		hasLatest   bool
		wantCreated int
		wantSkipped int
	}{
		{
			name:        "延滞なしの場合は何も発行しない",
			loans:       []model.OverdueLoan{},
			wantCreated: 0,
			wantSkipped: 0,
		},
		{
			name:        "初回の延滞には督促通知を発行する",
			loans:       []model.OverdueLoan{overdue},
			wantCreated: 1,
			wantSkipped: 0,
		},
		{
			name:        "7日以内に督促済みの貸出はスキップする",
			loans:       []model.OverdueLoan{overdue},
			hasLatest:   true,
			latestAge:   3 * 24 * time.Hour,
			wantCreated: 0,
			wantSkipped: 1,
		},
		{
			name:        "前回の督促から7日を超えていれば再度発行する",
			loans:       []model.OverdueLoan{overdue},
			hasLatest:   true,
			latestAge:   10 * 24 * time.Hour,
			wantCreated: 1,
			wantSkipped: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notificationRepo := &mockNotificationRepository{latestByTitle: map[string]*model.Notification{}}
			if tt.hasLatest {
				notificationRepo.latestByTitle[overdue.Title] = &model.Notification{
					PatronID:  overdue.PatronID,
					Type:      model.NotificationTypeOverdue,
					CreatedAt: today.Add(-tt.latestAge),
				}
			}
			svc := newTestOverdueSweepService(&mockLoanRepository{overdueLoans: tt.loans}, notificationRepo, today)

			result, err := svc.TriggerOverdue(ctx, today)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Created != tt.wantCreated || result.Skipped != tt.wantSkipped {
				t.Errorf("expected created=%d skipped=%d, got %+v", tt.wantCreated, tt.wantSkipped, result)
			}
			if len(notificationRepo.created) != tt.wantCreated {
				t.Errorf("expected %d notifications, got %d", tt.wantCreated, len(notificationRepo.created))
			}
		})
	}

	t.Run("1件の失敗は他の貸出の処理を止めない", func(t *testing.T) {
		second := overdue
		second.LoanID = 2
		second.Title = "それから"
		notificationRepo := &mockNotificationRepository{latestByTitle: map[string]*model.Notification{}}
		loanRepo := &mockLoanRepository{overdueLoans: []model.OverdueLoan{overdue, second}}
		svc := newTestOverdueSweepService(loanRepo, notificationRepo, today)
		// 1件目だけ重複チェックで失敗させる
		svc.notificationRepo = &failingFirstNotificationRepository{inner: notificationRepo, failTitle: overdue.Title}

		result, err := svc.TriggerOverdue(ctx, today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Created != 1 || result.Skipped != 1 {
			t.Errorf("expected created=1 skipped=1, got %+v", result)
		}
	})

	t.Run("延滞一覧の取得失敗はエラーを返す", func(t *testing.T) {
		loanRepo := &mockLoanRepository{overdueError: errors.New("connection reset")}
		svc := newTestOverdueSweepService(loanRepo, &mockNotificationRepository{}, today)

		if _, err := svc.TriggerOverdue(ctx, today); err == nil {
			t.Fatal("expected error")
		}
	})
}

// failingFirstNotificationRepository は特定の書名の重複チェックだけを失敗させます
type failingFirstNotificationRepository struct {
	inner     *mockNotificationRepository
	failTitle string
}

func (f *failingFirstNotificationRepository) Create(ctx context.Context, tx *sqlx.Tx, notification *model.Notification) error {
	return f.inner.Create(ctx, tx, notification)
}

func (f *failingFirstNotificationRepository) GetByID(ctx context.Context, notificationID int64) (*model.Notification, error) {
	return f.inner.GetByID(ctx, notificationID)
}

func (f *failingFirstNotificationRepository) UpdateIsRead(ctx context.Context, notificationID int64, isRead bool) error {
	return f.inner.UpdateIsRead(ctx, notificationID, isRead)
}

func (f *failingFirstNotificationRepository) ListByPatron(ctx context.Context, patronID string, isRead *bool) ([]model.Notification, error) {
	return f.inner.ListByPatron(ctx, patronID, isRead)
}

func (f *failingFirstNotificationRepository) LatestOverdueForBook(ctx context.Context, patronID, bookTitle string) (*model.Notification, error) {
	if bookTitle == f.failTitle {
		return nil, errors.New("query failed")
	}
	return f.inner.LatestOverdueForBook(ctx, patronID, bookTitle)
}
