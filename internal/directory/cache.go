package directory

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache 持有按服务地址区分的目录快照，由调用方的会话持有并显式失效。
//
// 约束：
// - 同一 key 只构建一次；失败的构建不缓存，下次 Get 重新构建
// - 并发 Get 同一 key 时共享同一次构建；构建不受单个调用方取消的影响
type Cache struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
	group singleflight.Group
}

func NewCache() *Cache {
	return &Cache{snaps: make(map[string]Snapshot)}
}

// Get 返回 key 对应的快照；不存在时用 c 构建。
func (ch *Cache) Get(ctx context.Context, key string, c Catalog) (Snapshot, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Snapshot{}, ErrNotConfigured
	}
	if snap, ok := ch.lookup(key); ok {
		return snap, nil
	}

	// 共享的构建不能跟随某一个调用方取消：否则一个调用方离开会让其他等待者一起失败。
	// 每个调用方只按自己的 ctx 放弃等待；构建本身继续完成并写入缓存。
	buildCtx := context.WithoutCancel(ctx)
	resCh := ch.group.DoChan(key, func() (any, error) {
		if snap, ok := ch.lookup(key); ok {
			return snap, nil
		}
		snap, err := Build(buildCtx, c)
		if err != nil {
			return Snapshot{}, err
		}
		ch.mu.Lock()
		if ch.snaps == nil {
			ch.snaps = make(map[string]Snapshot)
		}
		ch.snaps[key] = snap
		ch.mu.Unlock()
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case res := <-resCh:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		return res.Val.(Snapshot), nil
	}
}

// Invalidate 丢弃 key 对应的快照。
func (ch *Cache) Invalidate(key string) {
	ch.mu.Lock()
	delete(ch.snaps, strings.TrimSpace(key))
	ch.mu.Unlock()
}

// Reset 丢弃全部快照。
func (ch *Cache) Reset() {
	ch.mu.Lock()
	ch.snaps = make(map[string]Snapshot)
	ch.mu.Unlock()
}

func (ch *Cache) lookup(key string) (Snapshot, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	snap, ok := ch.snaps[key]
	return snap, ok
}
