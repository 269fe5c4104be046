package main

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"pixelrelay/types"
)

const subscriberQueueSize = 64

// criticalEvent reports whether an event type must never be silently
// dropped. A subscriber too slow to take a critical event is kicked;
// non-critical events are dropped for that subscriber instead.
func criticalEvent(msgType string) bool {
	switch msgType {
	case "connected", "canvas_data", "canvas_update", "pixel_update",
		"cooldown_active", "error":
		return true
	default:
		return false
	}
}

// Subscriber is an ephemeral per-connection handle. The outbound queue is
// owned by the transport; kick asks the transport to tear the connection
// down when the hub gives up on it.
type Subscriber struct {
	id   string
	size int
	out  chan<- types.WSMessage
	kick func()
}

func (s *Subscriber) Size() int { return s.size }

// BroadcastHub fans committed events out to every live subscriber of a
// namespace. Delivery never blocks the publish path: each subscriber has a
// bounded queue and pays for its own slowness.
type BroadcastHub struct {
	mu   sync.Mutex
	subs map[int]map[*Subscriber]bool
}

func NewBroadcastHub() *BroadcastHub {
	subs := make(map[int]map[*Subscriber]bool, len(types.CanvasSizes))
	for _, size := range types.CanvasSizes {
		subs[size] = make(map[*Subscriber]bool)
	}
	return &BroadcastHub{subs: subs}
}

// Subscribe registers a subscriber for a namespace. Once it returns, the
// subscriber is eligible for the next Publish. The connection
// acknowledgment is enqueued before registration completes, so it always
// precedes any broadcast event.
func (h *BroadcastHub) Subscribe(size int, out chan<- types.WSMessage, kick func()) *Subscriber {
	sub := &Subscriber{
		id:   uuid.NewString(),
		size: size,
		out:  out,
		kick: kick,
	}
	h.mu.Lock()
	set, ok := h.subs[size]
	if !ok {
		h.mu.Unlock()
		return sub
	}
	select {
	case out <- types.WSMessage{Type: "connected"}:
	default:
	}
	set[sub] = true
	count := h.onlineCountLocked(size)
	h.mu.Unlock()

	h.Publish(size, types.WSMessage{Type: "online_count", Data: types.OnlineCount{Count: count}})
	return sub
}

// Unsubscribe removes a subscriber. Safe to call more than once.
func (h *BroadcastHub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	set, ok := h.subs[sub.size]
	if !ok || !set[sub] {
		h.mu.Unlock()
		return
	}
	delete(set, sub)
	count := h.onlineCountLocked(sub.size)
	h.mu.Unlock()

	h.Publish(sub.size, types.WSMessage{Type: "online_count", Data: types.OnlineCount{Count: count}})
}

// Publish delivers an event to every current subscriber of the namespace.
// A full queue drops the event for non-critical types and kicks the
// subscriber for critical ones; either way the publisher never waits.
func (h *BroadcastHub) Publish(size int, msg types.WSMessage) {
	var kicked []*Subscriber
	h.mu.Lock()
	set, ok := h.subs[size]
	if !ok {
		h.mu.Unlock()
		return
	}
	for sub := range set {
		select {
		case sub.out <- msg:
		default:
			if criticalEvent(msg.Type) {
				log.Printf("hub: subscriber %s queue full, disconnecting", sub.id)
				delete(set, sub)
				kicked = append(kicked, sub)
			} else {
				log.Printf("hub: subscriber %s queue full, dropping %s", sub.id, msg.Type)
			}
		}
	}
	h.mu.Unlock()

	for _, sub := range kicked {
		if sub.kick != nil {
			sub.kick()
		}
	}
	if len(kicked) > 0 {
		h.Publish(size, types.WSMessage{
			Type: "online_count",
			Data: types.OnlineCount{Count: h.OnlineCount(size)},
		})
	}
}

func (h *BroadcastHub) OnlineCount(size int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.onlineCountLocked(size)
}

func (h *BroadcastHub) onlineCountLocked(size int) int {
	return len(h.subs[size])
}
