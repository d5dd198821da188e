package leaselock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	pgxsource "github.com/kitchenlens/relgraph/pkg/source/pgx"
)

func newClient(t *testing.T) (*Client, *pgxpool.Pool) {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("relgraph"),
		postgres.WithUsername("relgraph"),
		postgres.WithPassword("relgraph"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, pgxsource.Migrate(dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return New(pool), pool
}

func TestLeaseLock(t *testing.T) {
	client, pool := newClient(t)
	ctx := context.Background()

	t.Run("BusyWithoutWait", func(t *testing.T) {
		lease, err := client.Acquire(ctx, ImportKey("north"), Options{TTL: time.Minute})
		require.NoError(t, err)

		_, err = client.Acquire(ctx, ImportKey("north"), Options{TTL: time.Minute})
		assert.ErrorIs(t, err, ErrBusy)

		// other scopes are independent
		other, err := client.Acquire(ctx, ImportKey("south"), Options{TTL: time.Minute})
		require.NoError(t, err)
		require.NoError(t, other.Release(ctx))

		require.NoError(t, lease.Release(ctx))
		assert.ErrorIs(t, context.Cause(lease.Context), context.Canceled)

		again, err := client.Acquire(ctx, ImportKey("north"), Options{TTL: time.Minute})
		require.NoError(t, err)
		require.NoError(t, again.Release(ctx))
	})

	t.Run("ExpiredLeaseCanBeTaken", func(t *testing.T) {
		// stop renewal but keep the row
		lease, err := client.Acquire(ctx, "expiring", Options{TTL: 50 * time.Millisecond})
		require.NoError(t, err)
		lease.stopOnce.Do(func() { close(lease.stopCh) })

		time.Sleep(100 * time.Millisecond)
		next, err := client.Acquire(ctx, "expiring", Options{TTL: time.Minute})
		require.NoError(t, err)
		require.NoError(t, next.Release(ctx))
	})

	t.Run("LostLeaseCancelsContext", func(t *testing.T) {
		lease, err := client.Acquire(ctx, "stolen", Options{TTL: time.Second, RenewEvery: 20 * time.Millisecond})
		require.NoError(t, err)
		defer lease.Release(ctx)

		_, err = pool.Exec(ctx, `DELETE FROM relgraph_locks WHERE lock_key = 'stolen'`)
		require.NoError(t, err)

		select {
		case <-lease.Context.Done():
			assert.ErrorIs(t, context.Cause(lease.Context), ErrLost)
		case <-time.After(5 * time.Second):
			t.Fatal("lease context was not cancelled")
		}
	})

	t.Run("WithLeaseSerializes", func(t *testing.T) {
		var inside, maxInside atomic.Int32
		g, gctx := errgroup.WithContext(ctx)
		for range 4 {
			g.Go(func() error {
				return client.WithLease(gctx, ImportKey("shared"), Options{
					TTL:          time.Minute,
					Wait:         true,
					WaitInterval: 10 * time.Millisecond,
					WaitJitter:   10 * time.Millisecond,
				}, func(context.Context) error {
					n := inside.Add(1)
					for {
						m := maxInside.Load()
						if n <= m || maxInside.CompareAndSwap(m, n) {
							break
						}
					}
					time.Sleep(20 * time.Millisecond)
					inside.Add(-1)
					return nil
				})
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int32(1), maxInside.Load())
	})

	t.Run("WithLeasePassesErrors", func(t *testing.T) {
		boom := errors.New("boom")
		err := client.WithLease(ctx, "errors", Options{}, func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("EmptyKey", func(t *testing.T) {
		_, err := client.Acquire(ctx, "", Options{})
		assert.Error(t, err)
	})
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, defaultTTL, o.TTL)
	assert.Equal(t, defaultTTL/2, o.RenewEvery)
	assert.Equal(t, defaultWaitInterval, o.WaitInterval)

	o = Options{TTL: time.Second, RenewEvery: 2 * time.Second, WaitJitter: -1}.withDefaults()
	assert.Equal(t, 500*time.Millisecond, o.RenewEvery)
	assert.Equal(t, time.Duration(0), o.WaitJitter)
}
