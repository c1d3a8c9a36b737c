package model

import "time"

// Role は利用者のロールを表します
type Role string

const (
	// RoleStudent は学生利用者を表します
	RoleStudent Role = "student"
	// RoleLibrarian は司書を表します
	RoleLibrarian Role = "librarian"
	// RoleAdministrator は管理者を表します
	RoleAdministrator Role = "administrator"
)

// IsValid はロール値が定義済みのものかを返します
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleLibrarian, RoleAdministrator:
		return true
	}
	return false
}

// Patron は利用者のドメインモデルです
type Patron struct {
	ID           string    `db:"patron_id" json:"patron_id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Requester は認証済みリクエストの主体を表します
// すべての操作に明示的に渡され、暗黙のコンテキストには依存しません
type Requester struct {
	PatronID string
	Role     Role
}

// IsLibrarian は司書権限を持つかを返します
func (r Requester) IsLibrarian() bool {
	return r.Role == RoleLibrarian
}

// CanActOn は対象の利用者レコードを操作できるかを返します
// 本人または司書のみ許可されます
func (r Requester) CanActOn(patronID string) bool {
	return r.PatronID == patronID || r.IsLibrarian()
}

// ExternalIdentity は認証基盤から渡される利用者情報です
// EnsureProvisionedで利用者レコードの取得・作成に使われます
type ExternalIdentity struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Role      Role
}
