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

// BookRepository は蔵書の永続化を担当するインターフェースです
type BookRepository interface {
	GetByID(ctx context.Context, bookID int64) (*model.Book, error)
	GetTitleByID(ctx context.Context, bookID int64) (string, error)
	GetAvailableCopies(ctx context.Context, tx *sqlx.Tx, bookID int64) (int, error)
	List(ctx context.Context, filter model.BookFilter) ([]model.Book, error)
	Create(ctx context.Context, book *model.Book) error
	Update(ctx context.Context, book *model.Book) error
	SoftDelete(ctx context.Context, bookID int64) error
	DecrementAvailable(ctx context.Context, tx *sqlx.Tx, bookID int64) error
	IncrementAvailable(ctx context.Context, tx *sqlx.Tx, bookID int64) error
}

// BookRepositoryImpl はBookRepositoryの実装です
type BookRepositoryImpl struct {
	db *DB
}

// NewBookRepository は新しいBookRepositoryを作成します
func NewBookRepository(db *DB) *BookRepositoryImpl {
	return &BookRepositoryImpl{db: db}
}

// GetByID は指定されたIDの蔵書を取得します
// 削除済みの蔵書は対象外です
func (r *BookRepositoryImpl) GetByID(ctx context.Context, bookID int64) (*model.Book, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookRepository.GetByID")
	defer seg.Close(nil)

	query := `
		SELECT book_id, title, isbn, pages, publication_year, branch_id,
			total_copies, available_copies, is_deleted, created_at, updated_at
		FROM books
		WHERE book_id = $1
		AND is_deleted = FALSE`

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, bookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("book %d: %w", bookID, model.ErrNotFound)
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	return &book, nil
}

// GetTitleByID は指定された蔵書IDから書名を取得します
// 通知メッセージの組み立てに利用されます
func (r *BookRepositoryImpl) GetTitleByID(ctx context.Context, bookID int64) (string, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookRepository.GetTitleByID")
	defer seg.Close(nil)

	query := `
		SELECT title
		FROM books
		WHERE book_id = $1`

	var title string
	if err := r.db.QueryRowContext(ctx, query, bookID).Scan(&title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("book %d: %w", bookID, model.ErrNotFound)
		}
		seg.Close(err)
		return "", fmt.Errorf("failed to get book title: %w", err)
	}

	return title, nil
}

// GetAvailableCopies はトランザクション内で蔵書の在庫数を取得します
func (r *BookRepositoryImpl) GetAvailableCopies(ctx context.Context, tx *sqlx.Tx, bookID int64) (int, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookRepository.GetAvailableCopies")
	defer seg.Close(nil)

	query := `
		SELECT available_copies
		FROM books
		WHERE book_id = $1`

	var available int
	if err := tx.QueryRowContext(ctx, query, bookID).Scan(&available); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("book %d: %w", bookID, model.ErrNotFound)
		}
		seg.Close(err)
		return 0, fmt.Errorf("failed to get available copies: %w", err)
	}

	return available, nil
}

// List は絞り込み条件に一致する蔵書を取得します
// 削除済みの蔵書は一覧に含まれません
func (r *BookRepositoryImpl) List(ctx context.Context, filter model.BookFilter) ([]model.Book, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookRepository.List")
	defer seg.Close(nil)

	query := `
		SELECT book_id, title, isbn, pages, publication_year, branch_id,
			total_copies, available_copies, is_deleted, created_at, updated_at
		FROM books
		WHERE is_deleted = FALSE`

	args := []interface{}{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (title ILIKE $%d OR isbn ILIKE $%d)", len(args), len(args))
	}
	if filter.BranchID != nil {
		args = append(args, *filter.BranchID)
		query += fmt.Sprintf(" AND branch_id = $%d", len(args))
	}
	if filter.AvailableOnly {
		query += " AND available_copies > 0"
	}
	query += " ORDER BY title ASC"

	var books []model.Book
	if err := r.db.SelectContext(ctx, &books, query, args...); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	return books, nil
}

// Create は新しい蔵書を登録します
func (r *BookRepositoryImpl) Create(ctx context.Context, book *model.Book) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BookRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO books (
			title, isbn, pages, publication_year, branch_id,
			total_copies, available_copies, is_deleted, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, FALSE, $8, $8
		)
		RETURNING book_id, created_at, updated_at`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		book.Title,
		book.ISBN,
		book.Pages,
		book.PublicationYear,
		book.BranchID,
		book.TotalCopies,
		book.AvailableCopies,
		now,
	).Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("isbn %s already registered: %w", book.ISBN, model.ErrValidation)
		}
		seg.Close(err)
		return fmt.Errorf("failed to create book: %w", err)
	}

	return nil
}

// Update は蔵書の情報を更新します
func (r *BookRepositoryImpl) Update(ctx context.Context, book *model.Book) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BookRepository.Update")
	defer seg.Close(nil)

	query := `
		UPDATE books
		SET title = $1,
			isbn = $2,
			pages = $3,
			publication_year = $4,
			branch_id = $5,
			total_copies = $6,
			available_copies = $7,
			updated_at = $8
		WHERE book_id = $9
		AND is_deleted = FALSE`

	result, err := r.db.ExecContext(ctx, query,
		book.Title,
		book.ISBN,
		book.Pages,
		book.PublicationYear,
		book.BranchID,
		book.TotalCopies,
		book.AvailableCopies,
		time.Now(),
		book.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("isbn %s already registered: %w", book.ISBN, model.ErrValidation)
		}
		seg.Close(err)
		return fmt.Errorf("failed to update book: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("book %d: %w", book.ID, model.ErrNotFound)
	}

	return nil
}

// SoftDelete は蔵書に削除フラグを立てます
// 物理削除は行いません
func (r *BookRepositoryImpl) SoftDelete(ctx context.Context, bookID int64) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BookRepository.SoftDelete")
	defer seg.Close(nil)

	query := `
		UPDATE books
		SET is_deleted = TRUE,
			updated_at = $1
		WHERE book_id = $2
		AND is_deleted = FALSE`

	result, err := r.db.ExecContext(ctx, query, time.Now(), bookID)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to soft-delete book: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("book %d: %w", bookID, model.ErrNotFound)
	}

	return nil
}

// DecrementAvailable はトランザクション内で在庫数を1減らします
// 在庫チェックと減算を1文で行うため、最後の1冊を巡る競合は片方だけが成功します
func (r *BookRepositoryImpl) DecrementAvailable(ctx context.Context, tx *sqlx.Tx, bookID int64) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BookRepository.DecrementAvailable")
	defer seg.Close(nil)

	query := `
		UPDATE books
		SET available_copies = available_copies - 1,
			updated_at = $1
		WHERE book_id = $2
		AND is_deleted = FALSE
		AND available_copies > 0`

	result, err := tx.ExecContext(ctx, query, time.Now(), bookID)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to decrement available copies: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("book %d: %w", bookID, model.ErrUnavailable)
	}

	return nil
}

// IncrementAvailable はトランザクション内で在庫数を1増やします
func (r *BookRepositoryImpl) IncrementAvailable(ctx context.Context, tx *sqlx.Tx, bookID int64) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BookRepository.IncrementAvailable")
	defer seg.Close(nil)

	query := `
		UPDATE books
		SET available_copies = available_copies + 1,
			updated_at = $1
		WHERE book_id = $2`

	result, err := tx.ExecContext(ctx, query, time.Now(), bookID)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to increment available copies: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("book %d: %w", bookID, model.ErrNotFound)
	}

	return nil
}
