package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"

	"github.com/tosho-dev/tosho-backend/internal/model"
)

// PatronRepository は利用者の永続化を担当するインターフェースです
type PatronRepository interface {
	Create(ctx context.Context, patron *model.Patron) error
	GetByID(ctx context.Context, patronID string) (*model.Patron, error)
	GetByUsername(ctx context.Context, username string) (*model.Patron, error)
	List(ctx context.Context) ([]model.Patron, error)
}

// PatronRepositoryImpl はPatronRepositoryの実装です
type PatronRepositoryImpl struct {
	db *DB
}

// NewPatronRepository は新しいPatronRepositoryを作成します
func NewPatronRepository(db *DB) *PatronRepositoryImpl {
	return &PatronRepositoryImpl{db: db}
}

// Create は新しい利用者を登録します
func (r *PatronRepositoryImpl) Create(ctx context.Context, patron *model.Patron) error {
	ctx, seg := xray.BeginSubsegment(ctx, "PatronRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO patrons (
			patron_id, username, email, password_hash, first_name, last_name, role, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)`

	_, err := r.db.ExecContext(ctx, query,
		patron.ID,
		patron.Username,
		patron.Email,
		patron.PasswordHash,
		patron.FirstName,
		patron.LastName,
		patron.Role,
		patron.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username or email already registered: %w", model.ErrValidation)
		}
		seg.Close(err)
		return fmt.Errorf("failed to create patron: %w", err)
	}

	return nil
}

// GetByID は指定されたIDの利用者を取得します
func (r *PatronRepositoryImpl) GetByID(ctx context.Context, patronID string) (*model.Patron, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "PatronRepository.GetByID")
	defer seg.Close(nil)

	query := `
		SELECT patron_id, username, email, password_hash, first_name, last_name, role, created_at
		FROM patrons
		WHERE patron_id = $1`

	var patron model.Patron
	if err := r.db.GetContext(ctx, &patron, query, patronID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("patron %s: %w", patronID, model.ErrNotFound)
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to get patron: %w", err)
	}

	return &patron, nil
}

// GetByUsername は指定されたユーザー名の利用者を取得します
func (r *PatronRepositoryImpl) GetByUsername(ctx context.Context, username string) (*model.Patron, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "PatronRepository.GetByUsername")
	defer seg.Close(nil)

	query := `
		SELECT patron_id, username, email, password_hash, first_name, last_name, role, created_at
		FROM patrons
		WHERE username = $1`

	var patron model.Patron
	if err := r.db.GetContext(ctx, &patron, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("patron %s: %w", username, model.ErrNotFound)
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to get patron by username: %w", err)
	}

	return &patron, nil
}

// List はすべての利用者を登録日の降順で取得します
func (r *PatronRepositoryImpl) List(ctx context.Context) ([]model.Patron, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "PatronRepository.List")
	defer seg.Close(nil)

	query := `
		SELECT patron_id, username, email, password_hash, first_name, last_name, role, created_at
		FROM patrons
		ORDER BY created_at DESC`

	var patrons []model.Patron
	if err := r.db.SelectContext(ctx, &patrons, query); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to list patrons: %w", err)
	}

	return patrons, nil
}
