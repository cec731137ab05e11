package schedule

import "time"

// Manual is a virtual-time scheduler for tests. Callbacks only run inside
// Advance, on the calling goroutine.
type Manual struct {
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	every   time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() {
	t.stopped = true
}

// NewManual returns a scheduler at virtual time zero.
func NewManual() *Manual {
	return &Manual{}
}

// After runs fn once when virtual time reaches now+d.
func (m *Manual) After(d time.Duration, fn func()) Handle {
	return m.add(d, 0, fn)
}

// Every runs fn at each multiple of d from now.
func (m *Manual) Every(d time.Duration, fn func()) Handle {
	if d <= 0 {
		d = time.Nanosecond
	}
	return m.add(d, d, fn)
}

func (m *Manual) add(d, every time.Duration, fn func()) *manualTimer {
	m.seq++
	t := &manualTimer{at: m.now + d, every: every, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves virtual time forward, firing due callbacks in time order.
func (m *Manual) Advance(d time.Duration) {
	target := m.now + d
	for {
		next := m.nextDue(target)
		if next == nil {
			break
		}
		m.now = next.at
		if next.every > 0 {
			next.at += next.every
		} else {
			next.stopped = true
		}
		next.fn()
	}
	m.now = target
	m.prune()
}

// Now returns the current virtual time.
func (m *Manual) Now() time.Duration {
	return m.now
}

// Pending returns the number of live callbacks.
func (m *Manual) Pending() int {
	count := 0
	for _, t := range m.timers {
		if !t.stopped {
			count++
		}
	}
	return count
}

func (m *Manual) nextDue(target time.Duration) *manualTimer {
	var best *manualTimer
	for _, t := range m.timers {
		if t.stopped || t.at > target {
			continue
		}
		if best == nil || t.at < best.at || (t.at == best.at && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (m *Manual) prune() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.timers = live
}
