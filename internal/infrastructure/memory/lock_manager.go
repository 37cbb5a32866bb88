package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pmg1020/AquaTicketWeb/internal/domain/lock"
)

// ErrLockNotOwned は期限切れ等で他者に渡ったロックを解放しようとしたことを表す
var ErrLockNotOwned = errors.New("ロックの所有者ではありません")

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// LockManager はプロセス内のキー単位ロック
// Redis の SET NX PX と同じく TTL を過ぎたロックは他者が取得できる
type LockManager struct {
	mu      sync.Mutex
	entries map[string]lockEntry
	now     func() time.Time
}

func NewLockManager() *LockManager {
	return &LockManager{entries: make(map[string]lockEntry), now: time.Now}
}

type localLock struct {
	manager *LockManager
	key     string
	token   string
}

func (m *LockManager) tryAcquire(key string, ttl time.Duration) (*localLock, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		return nil, false
	}
	token := uuid.NewString()
	m.entries[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}
	return &localLock{manager: m, key: key, token: token}, true
}

// AcquireLockWithRetry はリトライ付きでロックを取得する
func (m *LockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (lock.Lock, error) {
	for i := 0; i < maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if l, ok := m.tryAcquire(key, ttl); ok {
			return l, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, lock.ErrNotAcquired
}

func (l *localLock) Release(_ context.Context) error {
	l.manager.mu.Lock()
	defer l.manager.mu.Unlock()

	e, ok := l.manager.entries[l.key]
	if !ok || e.token != l.token {
		return ErrLockNotOwned
	}
	delete(l.manager.entries, l.key)
	return nil
}

var _ lock.Manager = (*LockManager)(nil)
