package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/tosho-dev/tosho-backend/internal/model"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"存在しないリソースは404", model.ErrNotFound, http.StatusNotFound},
		{"権限不足は403", model.ErrForbidden, http.StatusForbidden},
		{"在庫なしは400", model.ErrUnavailable, http.StatusBadRequest},
		{"返却済みは400", model.ErrAlreadyReturned, http.StatusBadRequest},
		{"支払い済みは400", model.ErrAlreadyPaid, http.StatusBadRequest},
		{"キャンセル済みは400", model.ErrAlreadyCancelled, http.StatusBadRequest},
		{"検証エラーは400", model.ErrValidation, http.StatusBadRequest},
		{"不正なステータスは400", model.ErrInvalidStatus, http.StatusBadRequest},
		{"不正な遷移は400", model.ErrInvalidTransition, http.StatusBadRequest},
		{"ラップされたエラーも同じ扱い", fmt.Errorf("loan 1: %w", model.ErrAlreadyReturned), http.StatusBadRequest},
		{"未知のエラーは500", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFromError(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
