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

// FineService は延滞金の管理を担当します
// 返却時の自動発行はLoanServiceが行い、ここでは手動発行と徴収を扱います
type FineService struct {
	tx       repository.TxManager
	fineRepo repository.FineRepository
	loanRepo repository.LoanRepository
	nowFunc  func() time.Time
}

// NewFineService は新しいFineServiceを作成します
func NewFineService(tx repository.TxManager, fineRepo repository.FineRepository, loanRepo repository.LoanRepository) *FineService {
	return &FineService{
		tx:       tx,
		fineRepo: fineRepo,
		loanRepo: loanRepo,
		nowFunc:  time.Now,
	}
}

// Create は延滞金を手動で発行します(司書のみ)
// 金額は正の値でなければなりません
func (s *FineService) Create(ctx context.Context, req model.Requester, loanID int64, amount decimal.Decimal) (*model.Fine, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "FineService.Create")
	defer seg.Close(nil)

	if !req.IsLibrarian() {
		return nil, fmt.Errorf("create fine: %w", model.ErrForbidden)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("fine amount must be positive: %w", model.ErrValidation)
	}

	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	fine := &model.Fine{
		PatronID:   loan.PatronID,
		LoanID:     loanID,
		Amount:     amount,
		Paid:       false,
		AutoIssued: false,
		DateIssued: s.nowFunc(),
	}
	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		return s.fineRepo.Create(ctx, tx, fine)
	})
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	return fine, nil
}

// Pay は延滞金を支払い済みにします(司書のみ)
// 支払い済みの延滞金に対してはErrAlreadyPaidを返します
func (s *FineService) Pay(ctx context.Context, req model.Requester, fineID int64) (*model.Fine, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "FineService.Pay")
	defer seg.Close(nil)

	if !req.IsLibrarian() {
		return nil, fmt.Errorf("pay fine: %w", model.ErrForbidden)
	}

	fine, err := s.fineRepo.GetByID(ctx, fineID)
	if err != nil {
		return nil, err
	}

	if err := s.fineRepo.MarkPaid(ctx, fineID); err != nil {
		seg.Close(err)
		return nil, err
	}

	fine.Paid = true
	return fine, nil
}

// Delete は延滞金を削除します(司書のみ、管理上の訂正用)
func (s *FineService) Delete(ctx context.Context, req model.Requester, fineID int64) error {
	ctx, seg := xray.BeginSubsegment(ctx, "FineService.Delete")
	defer seg.Close(nil)

	if !req.IsLibrarian() {
		return fmt.Errorf("delete fine: %w", model.ErrForbidden)
	}

	if err := s.fineRepo.Delete(ctx, fineID); err != nil {
		seg.Close(err)
		return err
	}

	return nil
}

// List は延滞金一覧を取得します
// 司書は全件、学生は自分の延滞金のみ参照できます
// paidを指定すると支払い状態で絞り込みます
func (s *FineService) List(ctx context.Context, req model.Requester, paid *bool) ([]model.Fine, error) {
	if req.IsLibrarian() {
		return s.fineRepo.ListAll(ctx, paid)
	}
	return s.fineRepo.ListByPatron(ctx, req.PatronID, paid)
}
