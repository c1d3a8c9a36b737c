package model

import (
	"errors"
	"testing"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		current ReservationStatus
		next    ReservationStatus
		wantErr error
	}{
		{
			name:    "pendingからreadyへの遷移は許可",
			current: ReservationStatusPending,
			next:    ReservationStatusReady,
			wantErr: nil,
		},
		{
			name:    "ready以外からreadyへの遷移は不許可",
			current: ReservationStatusPickedUp,
			next:    ReservationStatusReady,
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "pendingからpicked_upへの遷移は許可",
			current: ReservationStatusPending,
			next:    ReservationStatusPickedUp,
			wantErr: nil,
		},
		{
			name:    "readyからpicked_upへの遷移は許可",
			current: ReservationStatusReady,
			next:    ReservationStatusPickedUp,
			wantErr: nil,
		},
		{
			name:    "cancelledからpicked_upへの遷移は不許可",
			current: ReservationStatusCancelled,
			next:    ReservationStatusPickedUp,
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "pendingからcancelledへの遷移は許可",
			current: ReservationStatusPending,
			next:    ReservationStatusCancelled,
			wantErr: nil,
		},
		{
			name:    "readyからcancelledへの遷移は許可",
			current: ReservationStatusReady,
			next:    ReservationStatusCancelled,
			wantErr: nil,
		},
		{
			name:    "cancelledからcancelledへの遷移はキャンセル済みエラー",
			current: ReservationStatusCancelled,
			next:    ReservationStatusCancelled,
			wantErr: ErrAlreadyCancelled,
		},
		{
			name:    "completedへの直接更新は遷移元を問わず許可",
			current: ReservationStatusPickedUp,
			next:    ReservationStatusCompleted,
			wantErr: nil,
		},
		{
			name:    "pendingへの巻き戻しは不正なステータス",
			current: ReservationStatusReady,
			next:    ReservationStatusPending,
			wantErr: ErrInvalidStatus,
		},
		{
			name:    "未定義のステータスは不正なステータス",
			current: ReservationStatusPending,
			next:    ReservationStatus("active"),
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.current, tt.next)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTransition(%v, %v) = %v, want %v", tt.current, tt.next, err, tt.wantErr)
			}
		})
	}
}
