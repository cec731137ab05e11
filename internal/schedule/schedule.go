// Package schedule provides delayed and repeating callbacks that run on a
// single-threaded event loop.
package schedule

import (
	"sync"
	"sync/atomic"
	"time"
)

// Handle cancels a scheduled callback.
type Handle interface {
	Stop()
}

// Scheduler schedules callbacks after a delay or on a fixed interval.
type Scheduler interface {
	After(d time.Duration, fn func()) Handle
	Every(d time.Duration, fn func()) Handle
}

// PostFunc hands a callback to the event loop that owns the scheduled state.
type PostFunc func(func())

// Realtime schedules callbacks on wall-clock time and posts them to an event
// loop. A stopped handle never runs its callback, even if the fire was
// already queued on the loop.
type Realtime struct {
	post PostFunc
}

// NewRealtime returns a wall-clock scheduler posting to post.
func NewRealtime(post PostFunc) *Realtime {
	return &Realtime{post: post}
}

type realHandle struct {
	stopped atomic.Bool
	once    sync.Once
	cancel  func()
}

func (h *realHandle) Stop() {
	h.stopped.Store(true)
	h.once.Do(h.cancel)
}

func (h *realHandle) guard(fn func()) func() {
	return func() {
		if h.stopped.Load() {
			return
		}
		fn()
	}
}

// After runs fn once after d.
func (r *Realtime) After(d time.Duration, fn func()) Handle {
	h := &realHandle{}
	t := time.AfterFunc(d, func() {
		r.post(h.guard(fn))
	})
	h.cancel = func() { t.Stop() }
	return h
}

// Every runs fn every d until stopped.
func (r *Realtime) Every(d time.Duration, fn func()) Handle {
	if d <= 0 {
		d = time.Millisecond
	}
	h := &realHandle{}
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	h.cancel = func() {
		ticker.Stop()
		close(done)
	}
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if h.stopped.Load() {
					return
				}
				r.post(h.guard(fn))
			}
		}
	}()
	return h
}
