package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

// WithTimeout runs fn under a deadline derived from ctx. A non-positive
// timeout runs fn directly. When the deadline passes first, the returned
// error matches both apperrors.ErrTimeout and context.DeadlineExceeded; fn
// keeps running in the background and its result is discarded.
func WithTimeout(ctx context.Context, timeout time.Duration, op string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(opCtx)
	}()
	select {
	case err := <-done:
		return err
	case <-opCtx.Done():
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s cancelled: %w", op, err)
		}
		return fmt.Errorf("%w: %s exceeded %v: %w", apperrors.ErrTimeout, op, timeout, context.DeadlineExceeded)
	}
}
