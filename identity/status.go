package identity

import (
	"context"
	"errors"
	"time"
)

// StatusChecker answers the edge filter's per-request account status question
// from a Store. Missing accounts count as inactive.
type StatusChecker struct {
	Store Store
	Now   func() time.Time
}

func (c StatusChecker) AccountActive(ctx context.Context, userID string) (bool, error) {
	account, err := c.Store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return account.Active(now()), nil
}
