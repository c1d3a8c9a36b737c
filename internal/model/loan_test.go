package model

import (
	"testing"
	"time"
)

func TestLoanIsOverdue(t *testing.T) {
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	returned := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		loan  Loan
		today time.Time
		want  bool
	}{
		{
			name:  "期限内の貸出中は延滞でない",
			loan:  Loan{DueDate: due},
			today: due.AddDate(0, 0, -1),
			want:  false,
		},
		{
			name:  "期限当日は延滞でない",
			loan:  Loan{DueDate: due},
			today: due,
			want:  false,
		},
		{
			name:  "期限を過ぎた貸出中は延滞",
			loan:  Loan{DueDate: due},
			today: due.AddDate(0, 0, 1),
			want:  true,
		},
		{
			name:  "返却済みは期限を過ぎていても延滞でない",
			loan:  Loan{DueDate: due, ReturnDate: &returned},
			today: due.AddDate(0, 0, 5),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loan.IsOverdue(tt.today); got != tt.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoanIsOpen(t *testing.T) {
	returned := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)

	open := Loan{DueDate: time.Now()}
	if !open.IsOpen() {
		t.Error("IsOpen() = false for loan without return date, want true")
	}

	closed := Loan{DueDate: time.Now(), ReturnDate: &returned}
	if closed.IsOpen() {
		t.Error("IsOpen() = true for returned loan, want false")
	}
}
