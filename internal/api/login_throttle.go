package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// 登录保护分两层：
// - 速率：同一 IP+用户名 按小时窗口限次，成败都计数。
// - 锁定：连续失败达到阈值后锁定该用户名，登录成功即清零。
// Redis 不可用时放行（计数失败不阻断登录）。
var (
	errLoginRateLimited = errors.New("login rate limit exceeded")
	errLoginLocked      = errors.New("account temporarily locked")
)

const (
	loginRateKeyPrefix = "rate:login:"
	loginLockKeyPrefix = "lock:login:"
	loginFailKeyPrefix = "lock:login:fail:"
)

// throttleStore 是 loginThrottle 依赖的最小存储面，便于换内存实现做测试。
type throttleStore interface {
	// Incr 自增计数并在首个窗口设置过期，返回当前计数。
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Locked(ctx context.Context, key string) (bool, error)
	Lock(ctx context.Context, key string, ttl time.Duration) error
	Clear(ctx context.Context, keys ...string) error
}

type loginThrottle struct {
	store     throttleStore
	perHour   int
	lockAfter int
	lockFor   time.Duration
}

func newLoginThrottle(store throttleStore, perHour, lockAfter int, lockFor time.Duration) *loginThrottle {
	return &loginThrottle{store: store, perHour: perHour, lockAfter: lockAfter, lockFor: lockFor}
}

// Reserve 在校验口令前调用：超出速率或处于锁定期则拒绝本次尝试。
func (t *loginThrottle) Reserve(ctx context.Context, ip, username string) error {
	username = normalizeLoginName(username)

	if t.perHour > 0 {
		window := time.Now().UTC().Format("2006010215")
		key := loginRateKeyPrefix + ip + ":" + username + ":" + window
		if count, err := t.store.Incr(ctx, key, time.Hour); err == nil && count > int64(t.perHour) {
			return errLoginRateLimited
		}
	}

	if locked, err := t.store.Locked(ctx, loginLockKeyPrefix+username); err == nil && locked {
		return errLoginLocked
	}
	return nil
}

// NoteFailure 记录一次口令失败；连续失败达到阈值即锁定。
func (t *loginThrottle) NoteFailure(ctx context.Context, username string) {
	username = normalizeLoginName(username)

	count, err := t.store.Incr(ctx, loginFailKeyPrefix+username, t.lockFor)
	if err != nil {
		return
	}
	if t.lockAfter > 0 && count >= int64(t.lockAfter) {
		_ = t.store.Lock(ctx, loginLockKeyPrefix+username, t.lockFor)
	}
}

// Reset 在登录成功后清掉失败计数与锁。
func (t *loginThrottle) Reset(ctx context.Context, username string) {
	username = normalizeLoginName(username)
	_ = t.store.Clear(ctx, loginFailKeyPrefix+username, loginLockKeyPrefix+username)
}

func normalizeLoginName(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// redisThrottleStore 把 throttleStore 映射到 Redis 原语上。
type redisThrottleStore struct {
	client redis.UniversalClient
}

func (s redisThrottleStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return incrWithTTL(ctx, s.client, key, ttl)
}

func (s redisThrottleStore) Locked(ctx context.Context, key string) (bool, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return ttl > 0, nil
}

func (s redisThrottleStore) Lock(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, key, "1", ttl).Err()
}

func (s redisThrottleStore) Clear(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}
