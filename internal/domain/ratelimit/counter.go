package ratelimit

import (
	"context"
	"sync"
	"time"
)

// WindowLength длина окна счетчика
const WindowLength = 60 * time.Second

// Window состояние одного минутного окна
type Window struct {
	Key       int64
	Count     int
	CreatedAt time.Time
}

// ExpiresAt окно истекает через минуту после создания, а не после последней записи
func (w Window) ExpiresAt() time.Time {
	return w.CreatedAt.Add(WindowLength)
}

// Counter общий счетчик окон. Increment обязан атомарно увеличивать и
// возвращать значение, иначе несколько процессов превысят лимит.
type Counter interface {
	Increment(ctx context.Context, key int64, now time.Time) (Window, error)
	Get(ctx context.Context, key int64) (Window, bool, error)
}

// WindowKey номер окна для момента времени
func WindowKey(t time.Time) int64 {
	return t.Unix() / int64(WindowLength/time.Second)
}

// MemoryCounter счетчик в памяти процесса
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[int64]Window
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[int64]Window)}
}

func (c *MemoryCounter) Increment(_ context.Context, key int64, now time.Time) (Window, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.windows {
		if k < key {
			delete(c.windows, k)
		}
	}

	w, ok := c.windows[key]
	if !ok {
		w = Window{Key: key, CreatedAt: now}
	}
	w.Count++
	c.windows[key] = w
	return w, nil
}

func (c *MemoryCounter) Get(_ context.Context, key int64) (Window, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.windows[key]
	return w, ok, nil
}
