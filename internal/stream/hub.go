package stream

import (
	"sync"

	"overseer/internal/types"
)

const subscriberBuffer = 256

// Hub fans stream events out to any number of passive listeners. It
// retains the current stream's events so a reconnecting listener can be
// caught up, and hands an immediate terminal marker to listeners that
// attach when nothing is active.
type Hub struct {
	mu        sync.Mutex
	nextID    int
	subs      map[int]chan types.StreamEvent
	replay    []types.StreamEvent
	requestID string
	active    bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan types.StreamEvent)}
}

// BeginStream resets the replay buffer for a new stream.
func (h *Hub) BeginStream(requestID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requestID = requestID
	h.replay = h.replay[:0]
	h.active = true
}

// EndStream marks the stream identified by requestID finished. The
// terminal event must already have been broadcast. A finisher that has
// been superseded by a newer BeginStream is ignored.
func (h *Hub) EndStream(requestID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.requestID != requestID {
		return
	}
	h.active = false
}

// Broadcast delivers an event to every attached subscriber. Events from
// a stream that is no longer current are dropped, never delivered or
// replayed. Slow subscribers that have fallen a full buffer behind miss
// events rather than blocking the producer.
func (h *Hub) Broadcast(event types.StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if event.RequestID != h.requestID {
		return
	}
	h.replay = append(h.replay, event)
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe attaches a listener. With replay set, the current stream's
// buffered events are delivered first. If no stream is active the
// listener immediately receives a terminal marker; the subscription
// stays attached for any later streams.
func (h *Hub) Subscribe(replay bool) (<-chan types.StreamEvent, func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	ch := make(chan types.StreamEvent, subscriberBuffer)
	if replay {
		for _, event := range h.replay {
			select {
			case ch <- event:
			default:
			}
		}
	}
	if !h.active {
		select {
		case ch <- types.EndEvent(h.requestID):
		default:
		}
	}
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

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
