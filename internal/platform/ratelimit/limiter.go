// Package ratelimit は予測エンドポイント向けのクライアント単位のレート制限を提供します。
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter はキー（クライアントIP）ごとにリクエストを許可するかを判定します。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter はRedisのINCRとEXPIREによる固定ウィンドウ方式のレート制限です。
// 複数インスタンス間でカウントを共有します。
type RedisLimiter struct {
	rdb    redis.Cmdable
	limit  int           // ウィンドウあたりの上限
	window time.Duration // どの単位でリセットするか
	prefix string
	now    func() time.Time
}

// NewRedisLimiter は新しいRedisLimiterのインスタンスを生成します。
func NewRedisLimiter(rdb redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
		now:    time.Now,
	}
}

// Key はkeyの現在のウィンドウに対応するRedisキーを返します。
func (l *RedisLimiter) Key(key string) string {
	bucket := l.now().UnixNano() / int64(l.window)
	return l.prefix + key + ":" + strconv.FormatInt(bucket, 10)
}

// Allow はウィンドウ内のカウントを1増やし、上限以下であれば許可します。
// ウィンドウの最初のリクエストでキーに有効期限を設定します。
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.Key(key)
	count, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("redis expire: %w", err)
		}
	}
	return count <= int64(l.limit), nil
}

// LocalLimiter はプロセス内のトークンバケットによるレート制限です。
// ウィンドウ1つ分アクセスのないキーは満杯まで回復しているため、掃除の際に削除します。
type LocalLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*localEntry
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter はwindowあたりlimit件を許可するLocalLimiterを生成します。
func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	limit = max(limit, 1)
	return &LocalLimiter{
		limiters:  make(map[string]*localEntry),
		rate:      rate.Every(window / time.Duration(limit)),
		burst:     limit,
		idleTTL:   window,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow はkeyのトークンバケットから1トークン消費できれば許可します。
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}
	e, ok := l.limiters[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

func (l *LocalLimiter) sweep(now time.Time) {
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) >= l.idleTTL {
			delete(l.limiters, k)
		}
	}
	l.lastSweep = now
}

// FallbackLimiter はprimaryが失敗した場合にfallbackで判定します。
type FallbackLimiter struct {
	primary  Limiter
	fallback Limiter
}

// NewFallbackLimiter は新しいFallbackLimiterを生成します。
func NewFallbackLimiter(primary, fallback Limiter) *FallbackLimiter {
	return &FallbackLimiter{primary: primary, fallback: fallback}
}

func (l *FallbackLimiter) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := l.primary.Allow(ctx, key)
	if err == nil {
		return ok, nil
	}
	slog.Warn("[RATE LIMIT] primary limiter failed, using fallback", "key", key, "error", err)
	return l.fallback.Allow(ctx, key)
}
