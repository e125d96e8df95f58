package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// RetryFunc is told about every failed connect attempt that will be retried.
type RetryFunc func(attempt int, delay time.Duration, err error)

// connectRetry retries a connect step with doubling delays while the failure looks transient.
type connectRetry struct {
	maxRetries int
	delay      time.Duration
	onRetry    RetryFunc
}

func newConnectRetry(opts Options) connectRetry {
	r := connectRetry{maxRetries: opts.MaxRetries, delay: opts.RetryBackoff, onRetry: opts.OnRetry}
	if r.maxRetries < 0 {
		r.maxRetries = 0
	}
	if r.delay <= 0 {
		r.delay = 100 * time.Millisecond
	}
	return r
}

func (r connectRetry) do(ctx context.Context, fn func(context.Context) error) error {
	delay := r.delay
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt > r.maxRetries || !transient(err) {
			return err
		}
		if r.onRetry != nil {
			r.onRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

// transient reports whether another connect attempt can succeed. Rejected credentials and
// unknown databases fail the same way every time. Malformed DSNs never get here: pgxpool.New
// rejects them before the first ping.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 28: invalid authorization, 3D: invalid catalog name.
		if strings.HasPrefix(pgErr.Code, "28") || strings.HasPrefix(pgErr.Code, "3D") {
			return false
		}
	}
	return true
}
