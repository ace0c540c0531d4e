package middleware

import (
	"sync"
	"time"

	"github.com/kataras/iris/v12"
)

// TokenBucket 令牌桶限流器
type TokenBucket struct {
	capacity   float64   // 桶容量
	tokens     float64   // 当前令牌数
	refillRate float64   // 每秒补充的令牌数
	lastRefill time.Time // 上次补充时间
	mu         sync.Mutex
	now        func() time.Time
}

// NewTokenBucket 创建令牌桶
func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	b := &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: float64(refillRate),
		now:        time.Now,
	}
	b.lastRefill = b.now()
	return b
}

// Allow 检查是否允许请求
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	tb.tokens += now.Sub(tb.lastRefill).Seconds() * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// lastUsed 上次取令牌的时间
func (tb *TokenBucket) lastUsed() time.Time {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastRefill
}

// KeyedLimiter 每个客户端一个令牌桶，长时间不来的客户端会被清掉
type KeyedLimiter struct {
	capacity, refillRate int64
	idle                 time.Duration
	now                  func() time.Time

	mu        sync.Mutex
	buckets   map[string]*TokenBucket
	lastSweep time.Time
}

// NewKeyedLimiter 创建按 key 区分的限流器
func NewKeyedLimiter(capacity, refillRate int64) *KeyedLimiter {
	l := &KeyedLimiter{
		capacity:   capacity,
		refillRate: refillRate,
		idle:       idleAfter(capacity, refillRate),
		now:        time.Now,
		buckets:    make(map[string]*TokenBucket),
	}
	l.lastSweep = l.now()
	return l
}

// idleAfter 桶闲置到重新装满所需的时间，之后删掉与新建没有区别；不补充时固定 10 分钟
func idleAfter(capacity, refillRate int64) time.Duration {
	if refillRate <= 0 {
		return 10 * time.Minute
	}
	d := time.Duration(capacity) * time.Second / time.Duration(refillRate)
	if d < time.Minute {
		d = time.Minute
	}
	return d
}

// Allow key 对应的桶是否还有令牌
func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweepLocked(now)
	}
	b, ok := l.buckets[key]
	if !ok {
		b = NewTokenBucket(l.capacity, l.refillRate)
		b.now = l.now
		b.lastRefill = now
		l.buckets[key] = b
	}
	l.mu.Unlock()
	return b.Allow()
}

func (l *KeyedLimiter) sweepLocked(now time.Time) {
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastUsed()) >= l.idle {
			delete(l.buckets, key)
		}
	}
}

// Len 当前跟踪的客户端数
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimitMiddleware 按客户端 IP 限流
func RateLimitMiddleware(l *KeyedLimiter) iris.Handler {
	return func(ctx iris.Context) {
		if !l.Allow(ctx.RemoteAddr()) {
			ctx.StopWithJSON(iris.StatusTooManyRequests, iris.Map{
				"code": iris.StatusTooManyRequests,
				"msg":  "demasiadas solicitudes, intente más tarde",
			})
			return
		}
		ctx.Next()
	}
}

// CheckoutRateLimit 结算接口限流：每个客户端容量 10，每秒补充 2 个
func CheckoutRateLimit() iris.Handler {
	return RateLimitMiddleware(NewKeyedLimiter(10, 2))
}
