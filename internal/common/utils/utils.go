package utils

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// GetStackWithError は、エラーとスタックトレースを組み合わせて返します
// バッチ処理の境界でのみ利用します
func GetStackWithError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w\nStack trace:\n%s", err, debug.Stack())
}

// RunWithTimeout は指定されたタイムアウト時間内で処理を実行します
// タイムアウトを超えた場合は、コンテキストをキャンセルしてエラーを返します
func RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errChan := make(chan error, 1)

	go func() {
		errChan <- fn(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return fmt.Errorf("process timed out after %v", timeout)
	}
}
