package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tosho-dev/tosho-backend/internal/model"
	"github.com/tosho-dev/tosho-backend/internal/repository"
)

// PatronService は利用者の登録・認証・プロビジョニングを担当します
type PatronService struct {
	patronRepo repository.PatronRepository
	nowFunc    func() time.Time
}

// NewPatronService は新しいPatronServiceを作成します
func NewPatronService(patronRepo repository.PatronRepository) *PatronService {
	return &PatronService{
		patronRepo: patronRepo,
		nowFunc:    time.Now,
	}
}

// Register は新しい利用者を登録します
// パスワードはbcryptでハッシュ化して保存します
func (s *PatronService) Register(ctx context.Context, username, email, password, firstName, lastName string, role model.Role) (*model.Patron, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "PatronService.Register")
	defer seg.Close(nil)

	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("username and email are required: %w", model.ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters: %w", model.ErrValidation)
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("unknown role %q: %w", role, model.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	patron := &model.Patron{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		Role:         role,
		CreatedAt:    s.nowFunc(),
	}
	if err := s.patronRepo.Create(ctx, patron); err != nil {
		seg.Close(err)
		return nil, err
	}

	return patron, nil
}

// Login はユーザー名とパスワードを検証し、一致した利用者を返します
// 利用者が存在しない場合もパスワード不一致と同じエラーを返します
func (s *PatronService) Login(ctx context.Context, username, password string) (*model.Patron, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "PatronService.Login")
	defer seg.Close(nil)

	patron, err := s.patronRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("login failed: %w", model.ErrForbidden)
		}
		seg.Close(err)
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(patron.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("login failed: %w", model.ErrForbidden)
	}

	return patron, nil
}

// EnsureProvisioned は認証基盤のアイデンティティに対応する利用者レコードを返します
// レコードが存在しない場合はその場で作成します(遅延プロビジョニング)
// 並行リクエストによる二重作成は一意制約で片方が失敗するため、再取得でフォールバックします
func (s *PatronService) EnsureProvisioned(ctx context.Context, identity model.ExternalIdentity) (*model.Patron, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "PatronService.EnsureProvisioned")
	defer seg.Close(nil)

	patron, err := s.patronRepo.GetByUsername(ctx, identity.Username)
	if err == nil {
		return patron, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		seg.Close(err)
		return nil, err
	}

	role := identity.Role
	if !role.IsValid() {
		role = model.RoleStudent
	}
	patron = &model.Patron{
		ID:        uuid.NewString(),
		Username:  identity.Username,
		Email:     identity.Email,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Role:      role,
		CreatedAt: s.nowFunc(),
	}
	if err := s.patronRepo.Create(ctx, patron); err != nil {
		if errors.Is(err, model.ErrValidation) {
			log.Printf("patron %s already provisioned concurrently, refetching", identity.Username)
			return s.patronRepo.GetByUsername(ctx, identity.Username)
		}
		seg.Close(err)
		return nil, err
	}

	return patron, nil
}

// Get は指定されたIDの利用者を取得します
func (s *PatronService) Get(ctx context.Context, patronID string) (*model.Patron, error) {
	return s.patronRepo.GetByID(ctx, patronID)
}

// GetByUsername は指定されたユーザー名の利用者を取得します
func (s *PatronService) GetByUsername(ctx context.Context, username string) (*model.Patron, error) {
	return s.patronRepo.GetByUsername(ctx, username)
}

// List は利用者一覧を取得します(司書のみ)
func (s *PatronService) List(ctx context.Context, req model.Requester) ([]model.Patron, error) {
	if !req.IsLibrarian() {
		return nil, fmt.Errorf("list patrons: %w", model.ErrForbidden)
	}
	return s.patronRepo.List(ctx)
}
