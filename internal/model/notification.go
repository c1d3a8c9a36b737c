package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NotificationType は通知の種類を表します
type NotificationType string

const (
	// NotificationTypeOverdue は延滞関連の通知を表します
	NotificationTypeOverdue NotificationType = "overdue"
	// NotificationTypeReservation は予約関連の通知を表します
	NotificationTypeReservation NotificationType = "reservation"
	// NotificationTypeAlert はその他の汎用通知を表します
	NotificationTypeAlert NotificationType = "alert"
)

// IsValid は通知種別が定義済みのものかを返します
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTypeOverdue, NotificationTypeReservation, NotificationTypeAlert:
		return true
	}
	return false
}

// Notification は通知のドメインモデルです
// is_read以外は追記専用で、作成後に変更されることはありません
type Notification struct {
	ID        int64            `db:"notification_id" json:"notification_id"`
	PatronID  string           `db:"patron_id" json:"patron_id"`
	Message   string           `db:"message" json:"message"`
	Type      NotificationType `db:"type" json:"type"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NewFineIssuedNotification は延滞金発行時の通知を作成します
func NewFineIssuedNotification(patronID, bookTitle string, lateDays int, amount decimal.Decimal, now time.Time) Notification {
	message := fmt.Sprintf("『%s』の返却が%d日遅れたため、延滞金 %s 円が発生しました。窓口でお支払いください。",
		bookTitle, lateDays, amount.StringFixed(2))

	return Notification{
		PatronID:  patronID,
		Message:   message,
		Type:      NotificationTypeOverdue,
		IsRead:    false,
		CreatedAt: now,
	}
}

// NewReservationReadyNotification は予約の取置完了通知を作成します
func NewReservationReadyNotification(patronID, bookTitle string, now time.Time) Notification {
	message := fmt.Sprintf("予約中の『%s』の準備ができました。窓口でお受け取りください。", bookTitle)

	return Notification{
		PatronID:  patronID,
		Message:   message,
		Type:      NotificationTypeReservation,
		IsRead:    false,
		CreatedAt: now,
	}
}

// NewOverdueReminderNotification は延滞中の貸出に対する督促通知を作成します
// メッセージには書名を含めます。延滞スイープの重複判定が書名を手がかりにするためです
func NewOverdueReminderNotification(patronID, bookTitle string, dueDate, now time.Time) Notification {
	message := fmt.Sprintf("『%s』の返却期限(%s)を過ぎています。至急返却してください。",
		bookTitle, dueDate.Format("2006-01-02"))

	return Notification{
		PatronID:  patronID,
		Message:   message,
		Type:      NotificationTypeOverdue,
		IsRead:    false,
		CreatedAt: now,
	}
}
