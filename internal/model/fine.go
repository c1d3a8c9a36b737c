package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 延滞金は1日あたり1.00、最低額も1.00です
var (
	finePerDay    = decimal.NewFromInt(1)
	minFineAmount = decimal.NewFromInt(1)
)

// Fine は延滞金のドメインモデルです
// AutoIssuedは返却時の自動発行かどうかを表し、自動発行は1貸出につき1件までです
type Fine struct {
	ID         int64           `db:"fine_id" json:"fine_id"`
	PatronID   string          `db:"patron_id" json:"patron_id"`
	LoanID     int64           `db:"loan_id" json:"loan_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Paid       bool            `db:"paid" json:"paid"`
	AutoIssued bool            `db:"auto_issued" json:"auto_issued"`
	DateIssued time.Time       `db:"date_issued" json:"date_issued"`
}

// LateDays は返却期限から返却日までの延滞日数を返します
// 期限内の返却は0を返します。日付粒度で計算します
func LateDays(dueDate, returnDate time.Time) int {
	days := int(ToDate(returnDate).Sub(ToDate(dueDate)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// FineAmount は延滞日数から延滞金額を計算します
// 延滞なしは0、延滞ありはmax(1.00, 延滞日数 × 1.00)です
// 副作用のない純粋関数で、返却処理からのみ利用されます
func FineAmount(lateDays int) decimal.Decimal {
	if lateDays <= 0 {
		return decimal.Zero
	}
	amount := finePerDay.Mul(decimal.NewFromInt(int64(lateDays)))
	if amount.LessThan(minFineAmount) {
		return minFineAmount
	}
	return amount
}
