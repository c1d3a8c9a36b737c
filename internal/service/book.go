package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"

	"github.com/tosho-dev/tosho-backend/internal/model"
	"github.com/tosho-dev/tosho-backend/internal/repository"
)

// BookService は蔵書カタログの管理を担当します
type BookService struct {
	bookRepo repository.BookRepository
	nowFunc  func() time.Time
}

// NewBookService は新しいBookServiceを作成します
func NewBookService(bookRepo repository.BookRepository) *BookService {
	return &BookService{
		bookRepo: bookRepo,
		nowFunc:  time.Now,
	}
}

// Get は蔵書を1件取得します。削除済みの蔵書はNotFoundになります
func (s *BookService) Get(ctx context.Context, bookID int64) (*model.Book, error) {
	return s.bookRepo.GetByID(ctx, bookID)
}

// List は蔵書一覧を取得します
func (s *BookService) List(ctx context.Context, filter model.BookFilter) ([]model.Book, error) {
	return s.bookRepo.List(ctx, filter)
}

// Create は蔵書を登録します(司書のみ)
// available_copiesが未指定(0)の場合はtotal_copiesで初期化します
func (s *BookService) Create(ctx context.Context, req model.Requester, book *model.Book) (*model.Book, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookService.Create")
	defer seg.Close(nil)

	if !req.IsLibrarian() {
		return nil, fmt.Errorf("create book: %w", model.ErrForbidden)
	}
	if err := book.Validate(); err != nil {
		return nil, fmt.Errorf("invalid book: %w", err)
	}

	if book.AvailableCopies == 0 {
		book.AvailableCopies = book.TotalCopies
	}
	now := s.nowFunc()
	book.CreatedAt = now
	book.UpdatedAt = now

	if err := s.bookRepo.Create(ctx, book); err != nil {
		seg.Close(err)
		return nil, err
	}

	return book, nil
}

// Update は蔵書情報を更新します(司書のみ)
// 在庫カウンターは貸出・返却経由でのみ変動するため、ここでは変更しません
func (s *BookService) Update(ctx context.Context, req model.Requester, book *model.Book) (*model.Book, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookService.Update")
	defer seg.Close(nil)

	if !req.IsLibrarian() {
		return nil, fmt.Errorf("update book: %w", model.ErrForbidden)
	}
	if err := book.Validate(); err != nil {
		return nil, fmt.Errorf("invalid book: %w", err)
	}

	current, err := s.bookRepo.GetByID(ctx, book.ID)
	if err != nil {
		return nil, err
	}
	book.AvailableCopies = current.AvailableCopies
	book.UpdatedAt = s.nowFunc()

	if err := s.bookRepo.Update(ctx, book); err != nil {
		seg.Close(err)
		return nil, err
	}

	return book, nil
}

// Delete は蔵書を論理削除します(司書のみ)
// 既存の貸出・予約の履歴は残ります
func (s *BookService) Delete(ctx context.Context, req model.Requester, bookID int64) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BookService.Delete")
	defer seg.Close(nil)

	if !req.IsLibrarian() {
		return fmt.Errorf("delete book: %w", model.ErrForbidden)
	}

	if err := s.bookRepo.SoftDelete(ctx, bookID); err != nil {
		seg.Close(err)
		return err
	}

	return nil
}
