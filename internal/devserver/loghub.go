package devserver

import (
	"sync"
	"time"
)

const (
	logRingCapacity = 500
	logSubBuffer    = 128
)

type LogLine struct {
	Line string    `json:"line"`
	At   time.Time `json:"at"`
}

// logHub keeps a ring of recent dev-server output lines and fans live
// lines out to subscribers.
type logHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan LogLine
	ring   []LogLine
	head   int
	count  int
}

func newLogHub() *logHub {
	return &logHub{
		subs: make(map[int]chan LogLine),
		ring: make([]LogLine, logRingCapacity),
	}
}

func (h *logHub) Broadcast(line LogLine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ring[h.head] = line
	h.head = (h.head + 1) % len(h.ring)
	if h.count < len(h.ring) {
		h.count++
	}
	for _, ch := range h.subs {
		select {
		case ch <- line:
		default:
		}
	}
}

func (h *logHub) Recent() []LogLine {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]LogLine, 0, h.count)
	for i := 0; i < h.count; i++ {
		idx := (h.head - h.count + i + len(h.ring)) % len(h.ring)
		out = append(out, h.ring[idx])
	}
	return out
}

func (h *logHub) Subscribe() (<-chan LogLine, func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	ch := make(chan LogLine, logSubBuffer)
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		sub, ok := h.subs[id]
		if ok {
			delete(h.subs, id)
		}
		h.mu.Unlock()
		if ok {
			close(sub)
		}
	}
	return ch, cancel
}
