package sessions_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"devlinks/internal/models"
	"devlinks/internal/sessions"
)

const ttl = sessions.DefaultTTL

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	// A sub-second start catches expiry checks done at whole-second precision.
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 700*int(time.Millisecond), time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// harness pairs a store with a way to move its notion of time forward.
type harness struct {
	store   sessions.Store
	advance func(time.Duration)
}

func harnesses(t *testing.T) map[string]func(t *testing.T) harness {
	return map[string]func(t *testing.T) harness{
		"memory": func(t *testing.T) harness {
			clock := newFakeClock()
			return harness{sessions.NewMemoryStore(ttl, sessions.WithClock(clock.Now)), clock.Advance}
		},
		"jwt": func(t *testing.T) harness {
			clock := newFakeClock()
			return harness{sessions.NewJWTStore("test_jwt_secret", ttl, sessions.WithClock(clock.Now)), clock.Advance}
		},
		"sql": func(t *testing.T) harness {
			clock := newFakeClock()
			dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
			db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
			require.NoError(t, err)
			sqlDB, err := db.DB()
			require.NoError(t, err)
			sqlDB.SetMaxOpenConns(1)
			t.Cleanup(func() { sqlDB.Close() })
			require.NoError(t, db.AutoMigrate(&models.Session{}))
			return harness{sessions.NewGORMStore(db, ttl, sessions.WithClock(clock.Now)), clock.Advance}
		},
		"redis": func(t *testing.T) harness {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { client.Close() })
			return harness{sessions.NewRedisStore(client, ttl), mr.FastForward}
		},
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	for name, build := range harnesses(t) {
		build := build
		t.Run(name, func(t *testing.T) {
			t.Run("ResolvesUntilExpiry", func(t *testing.T) {
				h := build(t)
				token, err := h.store.Issue(ctx, "a@x.com")
				require.NoError(t, err)
				require.NotEmpty(t, token)

				email, err := h.store.Resolve(ctx, token)
				require.NoError(t, err)
				assert.Equal(t, "a@x.com", email)

				h.advance(ttl - time.Second)
				email, err = h.store.Resolve(ctx, token)
				require.NoError(t, err)
				assert.Equal(t, "a@x.com", email)

				h.advance(time.Second)
				_, err = h.store.Resolve(ctx, token)
				assert.ErrorIs(t, err, sessions.ErrSessionNotFound)
			})

			t.Run("ResolvesUntilLastMillisecond", func(t *testing.T) {
				h := build(t)
				token, err := h.store.Issue(ctx, "a@x.com")
				require.NoError(t, err)

				h.advance(ttl - 600*time.Millisecond)
				email, err := h.store.Resolve(ctx, token)
				require.NoError(t, err)
				assert.Equal(t, "a@x.com", email)

				h.advance(599 * time.Millisecond)
				_, err = h.store.Resolve(ctx, token)
				require.NoError(t, err)

				h.advance(time.Millisecond)
				_, err = h.store.Resolve(ctx, token)
				assert.ErrorIs(t, err, sessions.ErrSessionNotFound)
			})

			t.Run("UnknownToken", func(t *testing.T) {
				h := build(t)
				_, err := h.store.Resolve(ctx, "not-a-token")
				assert.ErrorIs(t, err, sessions.ErrSessionNotFound)
			})

			t.Run("TokensAreDistinct", func(t *testing.T) {
				h := build(t)
				first, err := h.store.Issue(ctx, "a@x.com")
				require.NoError(t, err)
				second, err := h.store.Issue(ctx, "a@x.com")
				require.NoError(t, err)
				assert.NotEqual(t, first, second)

				for _, token := range []string{first, second} {
					email, err := h.store.Resolve(ctx, token)
					require.NoError(t, err)
					assert.Equal(t, "a@x.com", email)
				}
			})
		})
	}
}

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token, err := sessions.NewToken()
		require.NoError(t, err)
		assert.Len(t, token, 32)
		assert.False(t, seen[token], "duplicate token %s", token)
		seen[token] = true
	}
}

func TestJWTStore_RejectsForeignSignature(t *testing.T) {
	ctx := context.Background()
	issuer := sessions.NewJWTStore("one_secret", ttl)
	verifier := sessions.NewJWTStore("another_secret", ttl)

	token, err := issuer.Issue(ctx, "a@x.com")
	require.NoError(t, err)

	_, err = verifier.Resolve(ctx, token)
	assert.ErrorIs(t, err, sessions.ErrSessionNotFound)

	_, err = issuer.Resolve(ctx, token+"x")
	assert.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestMemoryStore_SweepsUnreadExpiredSessions(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := sessions.NewMemoryStore(time.Hour, sessions.WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		_, err := store.Issue(ctx, fmt.Sprintf("user%d@x.com", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 5, store.Len())

	clock.Advance(2 * time.Hour)
	fresh, err := store.Issue(ctx, "fresh@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	email, err := store.Resolve(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, "fresh@x.com", email)
}

func TestGORMStore_PurgeFailureStillRejects(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.AutoMigrate(&models.Session{}))

	err = db.Callback().Delete().Before("gorm:delete").Register("test:fail_delete", func(tx *gorm.DB) {
		tx.AddError(errors.New("disk I/O error"))
	})
	require.NoError(t, err)

	store := sessions.NewGORMStore(db, ttl, sessions.WithClock(clock.Now))
	token, err := store.Issue(ctx, "a@x.com")
	require.NoError(t, err)

	clock.Advance(ttl)
	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, sessions.ErrSessionNotFound)
	assert.ErrorContains(t, err, "failed to purge expired session")
}
