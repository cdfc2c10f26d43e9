package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/Veraticus/spice-ops/internal/service"
)

// UserLister enumerates the users a per-user job visits.
type UserLister interface {
	GetUserIDs(ctx context.Context) ([]int64, error)
}

// UserCheck is work done for a single user.
type UserCheck func(ctx context.Context, userID int64) error

// DefaultRetry retries a failing user check a few times with linear backoff.
var DefaultRetry = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 2 * time.Second,
	MaxDelay:     10 * time.Second,
	Backoff:      service.BackoffLinear,
}

// PerUser builds a job that runs check for every user. A failing user does
// not stop the others; all failures are returned together. A nil logger means
// the job logs through the logger carried by its context.
func PerUser(users UserLister, check UserCheck, retry service.RetryOptions, logger *slog.Logger) JobFunc {
	return func(ctx context.Context) error {
		logger := logger
		if logger == nil {
			logger = common.FromContext(ctx)
		}
		ids, err := users.GetUserIDs(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		var errs []error
		for _, id := range ids {
			if ctx.Err() != nil {
				errs = append(errs, ctx.Err())
				break
			}
			userID := id
			err := common.WithRetry(ctx, func() error {
				return check(ctx, userID)
			}, retry)
			if err != nil {
				logger.Error("User check failed", "user_id", userID, "error", err)
				errs = append(errs, fmt.Errorf("user %d: %w", userID, err))
			}
		}
		return errors.Join(errs...)
	}
}
