package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tosho-dev/tosho-backend/internal/model"
	"github.com/tosho-dev/tosho-backend/internal/token"
)

// mockProvisioner はテスト用のProvisionerです
type mockProvisioner struct {
	patron *model.Patron
	err    error
	called bool
}

func (m *mockProvisioner) EnsureProvisioned(ctx context.Context, identity model.ExternalIdentity) (*model.Patron, error) {
	m.called = true
	return m.patron, m.err
}

func TestAuth(t *testing.T) {
	manager := token.NewManager("test-secret", time.Hour)
	patron := &model.Patron{
		ID:       "p1",
		Username: "natsume",
		Email:    "natsume@example.com",
		Role:     model.RoleStudent,
	}

	validToken, err := manager.Generate(patron, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	newHandler := func(got *model.Requester) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requester, ok := RequesterFrom(r.Context())
			if !ok {
				t.Error("requester should be set in context")
			}
			*got = requester
			w.WriteHeader(http.StatusOK)
		})
	}

	t.Run("有効なトークンでリクエスト主体を設定する", func(t *testing.T) {
		provisioner := &mockProvisioner{patron: patron}
		var got model.Requester
		handler := Auth(manager, provisioner)(newHandler(&got))

		req := httptest.NewRequest(http.MethodGet, "/api/loans", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got.PatronID != patron.ID || got.Role != patron.Role {
			t.Errorf("unexpected requester: %+v", got)
		}
		if !provisioner.called {
			t.Error("provisioner should be called")
		}
	})

	t.Run("トークンなしは401を返す", func(t *testing.T) {
		handler := Auth(manager, &mockProvisioner{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be reached")
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/loans", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("不正なトークンは401を返す", func(t *testing.T) {
		handler := Auth(manager, &mockProvisioner{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be reached")
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/loans", nil)
		req.Header.Set("Authorization", "Bearer invalid.token.value")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("プロビジョニング失敗時はクレームにフォールバックする", func(t *testing.T) {
		provisioner := &mockProvisioner{err: errors.New("db down")}
		var got model.Requester
		handler := Auth(manager, provisioner)(newHandler(&got))

		req := httptest.NewRequest(http.MethodGet, "/api/loans", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got.PatronID != patron.ID || got.Role != model.RoleStudent {
			t.Errorf("requester should fall back to token claims, got %+v", got)
		}
	})
}
