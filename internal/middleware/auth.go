package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/tosho-dev/tosho-backend/internal/model"
	"github.com/tosho-dev/tosho-backend/internal/token"
)

type ctxKey int

const requesterKey ctxKey = iota

// Provisioner は認証済みアイデンティティから利用者レコードを解決します
type Provisioner interface {
	EnsureProvisioned(ctx context.Context, identity model.ExternalIdentity) (*model.Patron, error)
}

// Auth はBearerトークンを検証し、リクエスト主体をコンテキストに設定します
// 利用者レコードが未作成の場合はその場で作成します
// レコードの解決に失敗した場合はトークンのクレームにフォールバックして処理を続行します
func Auth(manager *token.Manager, provisioner Provisioner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenString == "" {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			claims, err := manager.Parse(tokenString)
			if err != nil {
				writeUnauthorized(w, "invalid token")
				return
			}

			requester := model.Requester{PatronID: claims.PatronID, Role: claims.Role}

			patron, err := provisioner.EnsureProvisioned(r.Context(), model.ExternalIdentity{
				Username: claims.Username,
				Email:    claims.Email,
				Role:     claims.Role,
			})
			if err != nil {
				log.Printf("Failed to provision patron %s, falling back to token claims: %v", claims.Username, err)
			} else {
				requester = model.Requester{PatronID: patron.ID, Role: patron.Role}
			}

			ctx := context.WithValue(r.Context(), requesterKey, requester)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequesterFrom はコンテキストからリクエスト主体を取り出します
func RequesterFrom(ctx context.Context) (model.Requester, bool) {
	requester, ok := ctx.Value(requesterKey).(model.Requester)
	return requester, ok
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		log.Printf("Failed to write unauthorized response: %v", err)
	}
}
