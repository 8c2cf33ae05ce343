package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 30, 0, time.UTC)
}

func newTestRedisLimiter(t *testing.T, limit int) (*RedisLimiter, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	l := NewRedisLimiter(db, limit, time.Minute)
	l.now = fixedNow
	return l, mock
}

func TestRedisLimiter_Allow(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(mock redismock.ClientMock, key string)
		wantAllow bool
		wantErr   bool
	}{
		{
			name: "first request sets expiry",
			setup: func(mock redismock.ClientMock, key string) {
				mock.ExpectIncr(key).SetVal(1)
				mock.ExpectExpire(key, time.Minute).SetVal(true)
			},
			wantAllow: true,
		},
		{
			name: "within limit",
			setup: func(mock redismock.ClientMock, key string) {
				mock.ExpectIncr(key).SetVal(2)
			},
			wantAllow: true,
		},
		{
			name: "at limit",
			setup: func(mock redismock.ClientMock, key string) {
				mock.ExpectIncr(key).SetVal(3)
			},
			wantAllow: true,
		},
		{
			name: "over limit",
			setup: func(mock redismock.ClientMock, key string) {
				mock.ExpectIncr(key).SetVal(4)
			},
			wantAllow: false,
		},
		{
			name: "incr fails",
			setup: func(mock redismock.ClientMock, key string) {
				mock.ExpectIncr(key).SetErr(errors.New("connection refused"))
			},
			wantErr: true,
		},
		{
			name: "expire fails",
			setup: func(mock redismock.ClientMock, key string) {
				mock.ExpectIncr(key).SetVal(1)
				mock.ExpectExpire(key, time.Minute).SetErr(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, mock := newTestRedisLimiter(t, 3)
			key := l.Key("10.0.0.1")
			tt.setup(mock, key)

			ok, err := l.Allow(context.Background(), "10.0.0.1")

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantAllow, ok)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRedisLimiter_KeyChangesPerWindow(t *testing.T) {
	l, _ := newTestRedisLimiter(t, 1)
	first := l.Key("ip")

	l.now = func() time.Time { return fixedNow().Add(time.Minute) }

	assert.NotEqual(t, first, l.Key("ip"))
	assert.Contains(t, first, "ratelimit:ip:")
}

func TestLocalLimiter_AllowsBurstThenRejects(t *testing.T) {
	l := NewLocalLimiter(2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "a")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "b")
	assert.True(t, ok, "keys are limited independently")
}

func TestLocalLimiter_EvictsIdleKeys(t *testing.T) {
	l := NewLocalLimiter(1, time.Minute)
	now := fixedNow()
	l.now = func() time.Time { return now }
	l.lastSweep = now
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "idle")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "busy")
	assert.True(t, ok)
	assert.Len(t, l.limiters, 2)

	now = now.Add(30 * time.Second)
	_, _ = l.Allow(ctx, "busy")
	assert.Len(t, l.limiters, 2, "no sweep before the window elapses")

	now = now.Add(45 * time.Second)
	ok, _ = l.Allow(ctx, "busy")
	assert.True(t, ok)
	assert.Len(t, l.limiters, 1)
	assert.Contains(t, l.limiters, "busy")

	ok, _ = l.Allow(ctx, "idle")
	assert.True(t, ok, "an evicted key starts with a full bucket")
}

type stubLimiter struct {
	ok    bool
	err   error
	calls int
}

func (s *stubLimiter) Allow(context.Context, string) (bool, error) {
	s.calls++
	return s.ok, s.err
}

func TestFallbackLimiter(t *testing.T) {
	t.Run("primary healthy", func(t *testing.T) {
		primary := &stubLimiter{ok: false}
		fallback := &stubLimiter{ok: true}

		ok, err := NewFallbackLimiter(primary, fallback).Allow(context.Background(), "k")

		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, fallback.calls)
	})

	t.Run("primary fails", func(t *testing.T) {
		primary := &stubLimiter{err: errors.New("redis down")}
		fallback := &stubLimiter{ok: true}

		ok, err := NewFallbackLimiter(primary, fallback).Allow(context.Background(), "k")

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, fallback.calls)
	})
}

func TestMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(Middleware(NewLocalLimiter(1, time.Minute), time.Minute))
	router.GET("/sales/:months", func(c *gin.Context) { c.Status(http.StatusOK) })

	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/sales/12", nil))
	assert.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/sales/12", nil))
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)
	assert.Equal(t, "60", w2.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w2.Body.String())
}

func TestMiddleware_LimiterErrorPassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(Middleware(&stubLimiter{err: errors.New("boom")}, time.Minute))
	router.GET("/income/:months", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/income/1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
