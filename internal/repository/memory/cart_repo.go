package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/embutidos/internal/datamodels/cart"
)

// 两次全表清理之间的最短间隔
const minSweepEvery = time.Minute

type cartEntry struct {
	lines    []cart.Line
	lastSeen time.Time
}

type cartRepo struct {
	mu        sync.Mutex
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
	data      map[string]*cartEntry
}

// NewCartRepository 进程内购物车，idle 时间内未访问的会话视为过期
func NewCartRepository(idle time.Duration) cart.Repository {
	return newCartRepo(idle, time.Now)
}

func newCartRepo(idle time.Duration, now func() time.Time) *cartRepo {
	return &cartRepo{
		idle:      idle,
		now:       now,
		lastSweep: now(),
		data:      make(map[string]*cartEntry),
	}
}

func (r *cartRepo) expired(e *cartEntry, now time.Time) bool {
	return r.idle > 0 && now.Sub(e.lastSeen) > r.idle
}

// sweepLocked 周期性丢掉过期会话，调用方持有锁
func (r *cartRepo) sweepLocked(now time.Time) {
	if r.idle <= 0 {
		return
	}
	every := r.idle
	if every < minSweepEvery {
		every = minSweepEvery
	}
	if now.Sub(r.lastSweep) < every {
		return
	}
	r.lastSweep = now
	dropped := 0
	for sid, e := range r.data {
		if r.expired(e, now) {
			delete(r.data, sid)
			dropped++
		}
	}
	if dropped > 0 {
		zap.L().Debug("expired carts dropped", zap.Int("dropped", dropped), zap.Int("live", len(r.data)))
	}
}

// get 返回未过期的条目，过期的顺手删除
func (r *cartRepo) get(sessionID string, now time.Time) (*cartEntry, bool) {
	r.sweepLocked(now)
	e, ok := r.data[sessionID]
	if !ok {
		return nil, false
	}
	if r.expired(e, now) {
		delete(r.data, sessionID)
		return nil, false
	}
	return e, true
}

func (r *cartRepo) Load(_ context.Context, sessionID string) ([]cart.Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	e, ok := r.get(sessionID, now)
	if !ok {
		return nil, nil
	}
	e.lastSeen = now
	out := make([]cart.Line, len(e.lines))
	copy(out, e.lines)
	return out, nil
}

func (r *cartRepo) Save(_ context.Context, sessionID string, lines []cart.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)
	if len(lines) == 0 {
		delete(r.data, sessionID)
		return nil
	}
	cp := make([]cart.Line, len(lines))
	copy(cp, lines)
	r.data[sessionID] = &cartEntry{lines: cp, lastSeen: now}
	return nil
}

func (r *cartRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, sessionID)
	return nil
}

func (r *cartRepo) Take(_ context.Context, sessionID string) ([]cart.Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.get(sessionID, r.now())
	if !ok {
		return nil, nil
	}
	delete(r.data, sessionID)
	return e.lines, nil
}

// size 当前持有的会话数
func (r *cartRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}
