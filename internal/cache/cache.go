// Package cache 进程内带过期时间的 key→value 缓存。
//
// 过期条目只在读取时惰性删除（或整体 Clear），没有后台清理协程：
// 长期不再访问的过期条目会一直占用内存直到进程退出或被 Clear。
package cache

import (
	"sync"
	"time"
)

// entry 缓存条目，expiresAt 为零值表示永不过期；到达 expiresAt 即视为过期
type entry struct {
	value     any
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Cache 并发安全的过期缓存，需显式创建并注入使用方
type Cache struct {
	mu    sync.RWMutex
	store map[string]entry
	now   func() time.Time
}

// New 创建缓存
func New() *Cache {
	return NewWithClock(time.Now)
}

// NewWithClock 使用自定义时钟创建缓存（测试用）
func NewWithClock(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		store: make(map[string]entry),
		now:   now,
	}
}

// Get 读取缓存；不存在或已过期返回 false，过期条目顺带删除
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expired(c.now()) {
		return e.value, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// 释放读锁期间可能有新的 Set，只删除仍然过期的条目
	cur, ok := c.store[key]
	if !ok {
		return nil, false
	}
	if cur.expired(c.now()) {
		delete(c.store, key)
		return nil, false
	}
	return cur.value, true
}

// Set 写入缓存，ttl<=0 表示永不过期；同 key 整体覆盖
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.store[key] = e
	c.mu.Unlock()
}

// Clear 不传 key 时清空全部，否则删除指定 key（不存在则忽略）
func (c *Cache) Clear(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(keys) == 0 {
		c.store = make(map[string]entry)
		return
	}
	for _, k := range keys {
		delete(c.store, k)
	}
}

// Len 当前持有的条目数（包含尚未被读取回收的过期条目）
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}
