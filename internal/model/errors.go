package model

import "errors"

// ドメイン層のエラー定義です
// ハンドラー層でHTTPステータスコードに変換されます
var (
	// ErrUnavailable は貸出可能な在庫がない場合のエラーです
	ErrUnavailable = errors.New("no available copies")
	// ErrAlreadyReturned は返却済みの貸出を再度返却しようとした場合のエラーです
	ErrAlreadyReturned = errors.New("loan has already been returned")
	// ErrAlreadyCancelled はキャンセル済みの予約を再度キャンセルしようとした場合のエラーです
	ErrAlreadyCancelled = errors.New("reservation has already been cancelled")
	// ErrAlreadyPaid は支払い済みの延滞金を再度支払おうとした場合のエラーです
	ErrAlreadyPaid = errors.New("fine has already been paid")
	// ErrForbidden はロールまたは所有者チェックに失敗した場合のエラーです
	ErrForbidden = errors.New("operation not permitted for requester")
	// ErrNotFound は対象レコードが存在しない場合のエラーです
	ErrNotFound = errors.New("record not found")
	// ErrInvalidStatus は予約ステータスとして不正な値が指定された場合のエラーです
	ErrInvalidStatus = errors.New("invalid reservation status")
	// ErrInvalidTransition は現在のステータスから許可されない遷移のエラーです
	ErrInvalidTransition = errors.New("status transition not allowed")
	// ErrValidation は一意制約違反などの入力検証エラーです
	ErrValidation = errors.New("validation failed")
)
