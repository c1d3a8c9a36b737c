package token

import (
	"testing"
	"time"

	"github.com/tosho-dev/tosho-backend/internal/model"
)

func TestManager_GenerateAndParse(t *testing.T) {
	now := time.Now()
	manager := NewManager("test-secret", time.Hour)
	patron := &model.Patron{
		ID:       "11111111-2222-3333-4444-555555555555",
		Username: "natsume",
		Email:    "natsume@example.com",
		Role:     model.RoleStudent,
	}

	tokenString, err := manager.Generate(patron, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := manager.Parse(tokenString)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.PatronID != patron.ID || claims.Username != patron.Username || claims.Role != patron.Role {
		t.Errorf("claims mismatch: %+v", claims)
	}
}

func TestManager_Parse(t *testing.T) {
	now := time.Now()
	manager := NewManager("test-secret", time.Hour)
	patron := &model.Patron{ID: "p1", Username: "natsume", Role: model.RoleStudent}

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "有効なトークンを受け入れる",
			token: func(t *testing.T) string {
				s, err := manager.Generate(patron, now)
				if err != nil {
					t.Fatal(err)
				}
				return s
			},
		},
		{
			name: "別の鍵で署名されたトークンは拒否する",
			token: func(t *testing.T) string {
				other := NewManager("other-secret", time.Hour)
				s, err := other.Generate(patron, now)
				if err != nil {
					t.Fatal(err)
				}
				return s
			},
			wantErr: true,
		},
		{
			name: "期限切れのトークンは拒否する",
			token: func(t *testing.T) string {
				s, err := manager.Generate(patron, now.Add(-2*time.Hour))
				if err != nil {
					t.Fatal(err)
				}
				return s
			},
			wantErr: true,
		},
		{
			name: "不正な形式のトークンは拒否する",
			token: func(t *testing.T) string {
				return "not.a.token"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.Parse(tt.token(t))
			if tt.wantErr != (err != nil) {
				t.Errorf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
