package model

import (
	"strings"
	"time"
)

// Book は蔵書のドメインモデルです
// available_copiesは貸出・返却によってのみ増減します
type Book struct {
	ID              int64     `db:"book_id" json:"book_id"`
	Title           string    `db:"title" json:"title"`
	ISBN            string    `db:"isbn" json:"isbn"`
	Pages           *int      `db:"pages" json:"pages,omitempty"`
	PublicationYear *int      `db:"publication_year" json:"publication_year,omitempty"`
	BranchID        *int64    `db:"branch_id" json:"branch_id,omitempty"`
	TotalCopies     int       `db:"total_copies" json:"total_copies"`
	AvailableCopies int       `db:"available_copies" json:"available_copies"`
	IsDeleted       bool      `db:"is_deleted" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Validate は登録・更新時の必須項目を検証します
func (b *Book) Validate() error {
	if strings.TrimSpace(b.Title) == "" || strings.TrimSpace(b.ISBN) == "" {
		return ErrValidation
	}
	if len(b.Title) > 150 || len(b.ISBN) > 20 {
		return ErrValidation
	}
	if b.TotalCopies < 0 || b.AvailableCopies < 0 {
		return ErrValidation
	}
	return nil
}

// BookFilter は蔵書一覧の絞り込み条件です
type BookFilter struct {
	Search        string
	BranchID      *int64
	AvailableOnly bool
}
