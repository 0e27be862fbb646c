package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/locker"
)

// releaseScript deletes a lock only if it still carries our token, so an expired
// lease taken over by another holder is never released by mistake.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var errLockHeld = errors.New("lock held by another owner")

// Locker implements usecase.AccountLocker across processes with one SET NX PX key per account.
type Locker struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	lease   time.Duration
}

// NewLocker creates a Locker. timeout bounds acquisition; lease is how long a key
// survives a crashed holder and must outlast the longest ledger transaction.
func NewLocker(client *redis.Client, timeout, lease time.Duration) *Locker {
	return &Locker{
		client:  client,
		prefix:  "lock:account:",
		timeout: timeout,
		lease:   lease,
	}
}

// Lock acquires every id in ascending order. Contention past the timeout fails with
// domain.ErrBusy; Redis errors are returned as they are.
func (l *Locker) Lock(ctx context.Context, ids ...string) (func(), error) {
	keys := locker.SortedUnique(ids)
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	acquired := make([]string, 0, len(keys))
	release := func() {
		rctx, rcancel := context.WithTimeout(context.Background(), time.Second)
		defer rcancel()
		for i := len(acquired) - 1; i >= 0; i-- {
			_ = releaseScript.Run(rctx, l.client, []string{acquired[i]}, token).Err()
		}
	}

	for _, id := range keys {
		key := l.prefix + id
		if err := l.acquire(ctx, key, token); err != nil {
			release()
			if errors.Is(err, errLockHeld) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, fmt.Errorf("%w: account %s is locked: %v", domain.ErrBusy, id, err)
			}
			return nil, fmt.Errorf("failed to acquire lock for account %s: %w", id, err)
		}
		acquired = append(acquired, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *Locker) acquire(ctx context.Context, key, token string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		ok, err := l.client.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return backoff.Permanent(err)
		}
		if !ok {
			return errLockHeld
		}
		return nil
	}, backoff.WithContext(b, ctx))
}
