package notify

import (
	"context"
	"sync"
)

// Feed keeps the most recent events in a fixed-size ring. When full, the
// oldest entry is overwritten.
type Feed struct {
	mu    sync.RWMutex
	buf   []Event
	next  int
	count int
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 1
	}
	return &Feed{buf: make([]Event, capacity)}
}

func (f *Feed) Publish(_ context.Context, ev Event) error {
	f.Append(ev)
	return nil
}

func (f *Feed) Append(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.buf[f.next] = ev
	f.next = (f.next + 1) % len(f.buf)
	if f.count < len(f.buf) {
		f.count++
	}
}

// Recent returns up to limit events, newest first. limit <= 0 returns all retained.
func (f *Feed) Recent(limit int) []Event {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if limit <= 0 || limit > f.count {
		limit = f.count
	}

	out := make([]Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (f.next - i + len(f.buf)) % len(f.buf)
		out = append(out, f.buf[idx])
	}
	return out
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}

func (f *Feed) Cap() int {
	return len(f.buf)
}
