package model

import "time"

// ReservationStatus は予約のステータスを表します
type ReservationStatus string

const (
	// ReservationStatusPending は在庫待ちの予約を表します
	ReservationStatusPending ReservationStatus = "pending"
	// ReservationStatusReady は取置済みで受取可能な予約を表します
	ReservationStatusReady ReservationStatus = "ready"
	// ReservationStatusPickedUp は受取済みの予約を表します
	ReservationStatusPickedUp ReservationStatus = "picked_up"
	// ReservationStatusCancelled はキャンセルされた予約を表します
	ReservationStatusCancelled ReservationStatus = "cancelled"
	// ReservationStatusCompleted は完了した予約を表します
	// 自動フローからは遷移せず、司書による直接更新でのみ到達します
	ReservationStatusCompleted ReservationStatus = "completed"
)

// Reservation は予約のドメインモデルです
// 同一蔵書への予約はreservation_date昇順のFIFOとして扱われます
type Reservation struct {
	ID              int64             `db:"reservation_id" json:"reservation_id"`
	PatronID        string            `db:"patron_id" json:"patron_id"`
	BookID          int64             `db:"book_id" json:"book_id"`
	ReservationDate time.Time         `db:"reservation_date" json:"reservation_date"`
	Status          ReservationStatus `db:"status" json:"status"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// IsUpdatableStatus はステータス更新操作の対象として妥当な値かを返します
// pendingへの巻き戻しは許可されません
func IsUpdatableStatus(s ReservationStatus) bool {
	switch s {
	case ReservationStatusReady, ReservationStatusPickedUp,
		ReservationStatusCancelled, ReservationStatusCompleted:
		return true
	}
	return false
}

// ValidateTransition は現在のステータスから次のステータスへの遷移を検証します
// 在庫チェックは呼び出し側(サービス層)の責務です
func ValidateTransition(current, next ReservationStatus) error {
	if !IsUpdatableStatus(next) {
		return ErrInvalidStatus
	}

	switch next {
	case ReservationStatusReady:
		if current != ReservationStatusPending {
			return ErrInvalidTransition
		}
	case ReservationStatusPickedUp:
		if current != ReservationStatusPending && current != ReservationStatusReady {
			return ErrInvalidTransition
		}
	case ReservationStatusCancelled:
		if current == ReservationStatusCancelled {
			return ErrAlreadyCancelled
		}
	case ReservationStatusCompleted:
		// 直接更新専用のため遷移元の制限なし
	}

	return nil
}
