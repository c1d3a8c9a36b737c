package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"

	"github.com/tosho-dev/tosho-backend/internal/config"
	"github.com/tosho-dev/tosho-backend/internal/model"
	"github.com/tosho-dev/tosho-backend/internal/repository"
)

// 同一の貸出に対する督促通知は7日間に1件までとします
const overdueReminderInterval = 7 * 24 * time.Hour

// SweepResult は延滞スイープの実行結果です
type SweepResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// OverdueSweepService は延滞貸出の督促バッチ処理を担当します
type OverdueSweepService struct {
	db               *repository.DB
	tx               repository.TxManager
	loanRepo         repository.LoanRepository
	notificationRepo repository.NotificationRepository
	sfnClient        *sfn.Client
	cfg              *config.Config
	nowFunc          func() time.Time
}

// NewOverdueSweepService は新しいOverdueSweepServiceを作成します
func NewOverdueSweepService(cfg *config.Config, sfnClient *sfn.Client) (*OverdueSweepService, error) {
	db, err := repository.NewDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	return &OverdueSweepService{
		db:               db,
		tx:               db,
		loanRepo:         repository.NewLoanRepository(db),
		notificationRepo: repository.NewNotificationRepository(db),
		sfnClient:        sfnClient,
		cfg:              cfg,
		nowFunc:          time.Now,
	}, nil
}

// Close は終了処理を行います
func (s *OverdueSweepService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Run は延滞スイープを実行し、結果をStep Functionsに通知します
func (s *OverdueSweepService) Run(ctx context.Context) error {
	// X-Rayセグメントの作成
	ctx, seg := xray.BeginSubsegment(ctx, "OverdueSweepService.Run")
	defer seg.Close(nil)

	startTime := time.Now()

	result, err := s.TriggerOverdue(ctx, s.nowFunc())
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to sweep overdue loans: %w", err)
	}

	if err := s.sendTaskSuccess(ctx, result); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to send task success: %w", err)
	}

	duration := time.Since(startTime)

	// セグメントにメタデータを追加
	if err := seg.AddMetadata("created", result.Created); err != nil {
		log.Printf("Failed to add created metadata: %v", err)
	}
	if err := seg.AddMetadata("skipped", result.Skipped); err != nil {
		log.Printf("Failed to add skipped metadata: %v", err)
	}

	log.Printf("Overdue sweep completed successfully. Created: %d, Skipped: %d, Duration: %v",
		result.Created, result.Skipped, duration)
	return nil
}

// TriggerOverdue は指定日時点で延滞中の全貸出を走査し、督促通知を発行します
// 同じ貸出への通知が7日以内に存在する場合はスキップします
// 1件の失敗で全体を止めず、失敗した貸出はログに残して次へ進みます
func (s *OverdueSweepService) TriggerOverdue(ctx context.Context, today time.Time) (*SweepResult, error) {
	// X-Rayセグメントの作成
	ctx, seg := xray.BeginSubsegment(ctx, "OverdueSweepService.TriggerOverdue")
	defer seg.Close(nil)

	overdueLoans, err := s.loanRepo.GetOverdueLoans(ctx, today)
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	log.Printf("Found %d overdue loans", len(overdueLoans))

	result := &SweepResult{}
	for _, loan := range overdueLoans {
		created, err := s.remindLoan(ctx, loan, today)
		if err != nil {
			log.Printf("Failed to process overdue loan %d: %v", loan.LoanID, err)
			result.Skipped++
			continue
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}

	return result, nil
}

// remindLoan は単一の延滞貸出に対する督促通知を発行します
// 発行した場合はtrueを、重複によりスキップした場合はfalseを返します
func (s *OverdueSweepService) remindLoan(ctx context.Context, loan model.OverdueLoan, today time.Time) (bool, error) {
	latest, err := s.notificationRepo.LatestOverdueForBook(ctx, loan.PatronID, loan.Title)
	if err != nil {
		return false, err
	}
	if latest != nil && today.Sub(latest.CreatedAt) < overdueReminderInterval {
		return false, nil
	}

	notification := model.NewOverdueReminderNotification(loan.PatronID, loan.Title, loan.DueDate, s.nowFunc())
	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		return s.notificationRepo.Create(ctx, tx, &notification)
	})
	if err != nil {
		return false, err
	}

	return true, nil
}

// sendTaskSuccess はStep Functionsにタスク成功を通知します
func (s *OverdueSweepService) sendTaskSuccess(ctx context.Context, result *SweepResult) error {
	// ローカルの場合はStep Functionsの処理をスキップ
	if os.Getenv("ENV") == "LOCAL" || s.sfnClient == nil {
		log.Printf("Local environment detected. Skipping Step Functions task success notification")
		return nil
	}

	output, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal sweep result: %w", err)
	}

	// タスクトークンを設定から取得
	taskToken := s.cfg.SFN.TaskToken
	if taskToken == "" {
		return fmt.Errorf("SFN_TASK_TOKEN is not set in config")
	}

	input := &sfn.SendTaskSuccessInput{
		TaskToken: aws.String(taskToken),
		Output:    aws.String(string(output)),
	}

	if _, err := s.sfnClient.SendTaskSuccess(ctx, input); err != nil {
		return fmt.Errorf("failed to send task success: %w", err)
	}

	log.Printf("Successfully sent task success with output: %s", string(output))
	return nil
}
