package canport

import (
	"context"
	"log"
	"sync"
)

// handler fans incoming frames out to subscribers
type handler struct {
	adapter   Adapter
	close     chan struct{}
	closeOnce sync.Once

	submap     map[uint32]map[*Subscriber]struct{}
	globalSubs []*Subscriber

	mu sync.RWMutex
}

func newHandler(adapter Adapter) *handler {
	return &handler{
		adapter:    adapter,
		close:      make(chan struct{}),
		submap:     make(map[uint32]map[*Subscriber]struct{}),
		globalSubs: make([]*Subscriber, 0, 16),
	}
}

func (h *handler) register(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(sub.identifiers) == 0 {
		h.globalSubs = append(h.globalSubs, sub)
		return
	}
	for id := range sub.identifiers {
		if _, ok := h.submap[id]; !ok {
			h.submap[id] = make(map[*Subscriber]struct{})
		}
		h.submap[id][sub] = struct{}{}
	}
}

func (h *handler) unregister(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	defer close(sub.responseChan)
	if len(sub.identifiers) == 0 {
		for i, s := range h.globalSubs {
			if s == sub {
				h.globalSubs = append(h.globalSubs[:i], h.globalSubs[i+1:]...)
				break
			}
		}
		return
	}
	for id := range sub.identifiers {
		subs, ok := h.submap[id]
		if !ok {
			continue
		}
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.submap, id)
		}
	}
}

func (h *handler) run(ctx context.Context) {
	recvChan := h.adapter.Recv()
	for {
		select {
		case <-h.close:
			return
		case <-ctx.Done():
			return
		case frame, ok := <-recvChan:
			if !ok {
				return
			}
			h.deliver(frame)
		}
	}
}

// deliver sends while holding the read lock so unregister cannot close a
// channel in the middle of a send.
func (h *handler) deliver(frame *CANFrame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.globalSubs {
		h.send(sub, frame)
	}
	for sub := range h.submap[frame.Identifier] {
		h.send(sub, frame)
	}
}

func (h *handler) send(sub *Subscriber, frame *CANFrame) {
	select {
	case sub.responseChan <- frame:
	default:
		log.Printf("failed to deliver 0x%03X, subscriber full", frame.Identifier)
	}
}

func (h *handler) Close() {
	h.closeOnce.Do(func() {
		close(h.close)
	})
}
