package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tosho-dev/tosho-backend/internal/model"
)

// Claims はアクセストークンに含まれる利用者情報です
type Claims struct {
	PatronID string     `json:"patron_id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Manager はJWTの発行と検証を担当します
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager は新しいManagerを作成します
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// Generate は利用者のアクセストークンを発行します
func (m *Manager) Generate(patron *model.Patron, now time.Time) (string, error) {
	claims := Claims{
		PatronID: patron.ID,
		Username: patron.Username,
		Email:    patron.Email,
		Role:     patron.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   patron.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Parse はトークンを検証し、含まれるクレームを返します
// 署名方式がHS256でない場合や期限切れの場合はエラーになります
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
