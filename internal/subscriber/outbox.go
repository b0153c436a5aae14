package subscriber

import "time"

type outboxEntry struct {
	data     []byte
	queuedAt time.Time
}

// Outbox holds messages sent while the subscriber is not authenticated. It
// keeps at most max entries, dropping the oldest on overflow, and entries
// older than maxAge are discarded instead of being sent.
type Outbox struct {
	entries []outboxEntry
	max     int
	maxAge  time.Duration
}

func NewOutbox(max int, maxAge time.Duration) *Outbox {
	return &Outbox{max: max, maxAge: maxAge}
}

// Push appends data and reports how many entries were dropped to make room.
func (o *Outbox) Push(data []byte, now time.Time) int {
	o.entries = append(o.entries, outboxEntry{data: data, queuedAt: now})
	dropped := 0
	if o.max > 0 && len(o.entries) > o.max {
		dropped = len(o.entries) - o.max
		o.entries = append(o.entries[:0:0], o.entries[dropped:]...)
	}
	return dropped
}

// Prune drops entries older than maxAge and returns how many were dropped.
func (o *Outbox) Prune(now time.Time) int {
	if o.maxAge <= 0 {
		return 0
	}
	keep := o.entries[:0]
	for _, e := range o.entries {
		if now.Sub(e.queuedAt) <= o.maxAge {
			keep = append(keep, e)
		}
	}
	dropped := len(o.entries) - len(keep)
	o.entries = keep
	return dropped
}

// Peek returns the oldest entry without removing it.
func (o *Outbox) Peek() ([]byte, bool) {
	if len(o.entries) == 0 {
		return nil, false
	}
	return o.entries[0].data, true
}

// Pop removes the oldest entry.
func (o *Outbox) Pop() {
	if len(o.entries) > 0 {
		o.entries = o.entries[1:]
	}
}

func (o *Outbox) Len() int {
	return len(o.entries)
}
