package model

import "time"

// Loan は貸出のドメインモデルです
// return_dateがnullの間は貸出中、設定されると返却済みになります
// 一度設定されたreturn_dateがクリアされることはありません
type Loan struct {
	ID         int64      `db:"loan_id" json:"loan_id"`
	PatronID   string     `db:"patron_id" json:"patron_id"`
	BookID     int64      `db:"book_id" json:"book_id"`
	LoanDate   time.Time  `db:"loan_date" json:"loan_date"`
	DueDate    time.Time  `db:"due_date" json:"due_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date,omitempty"`
}

// IsOpen は貸出中かを返します
func (l *Loan) IsOpen() bool {
	return l.ReturnDate == nil
}

// IsOverdue は指定日時点で延滞中かを返します
// 貸出中かつ返却期限を過ぎている場合に延滞となります
func (l *Loan) IsOverdue(today time.Time) bool {
	return l.IsOpen() && ToDate(l.DueDate).Before(ToDate(today))
}

// OverdueLoan は延滞貸出の一覧ビューです(v_overdue_loansに対応)
type OverdueLoan struct {
	LoanID   int64     `db:"loan_id"`
	PatronID string    `db:"patron_id"`
	BookID   int64     `db:"book_id"`
	Title    string    `db:"title"`
	DueDate  time.Time `db:"due_date"`
}

// ToDate は時刻を日付単位に切り詰めます
// due_date・return_dateは日付粒度で扱います
func ToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
