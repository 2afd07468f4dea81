package services

import (
	"sync"
)

// StreamHub fans incoming JPEG frames out to live viewers. Keyed by the
// external device id so the MQTT path never needs a database lookup per
// frame. Slow viewers drop frames rather than backing up the publisher.
type StreamHub struct {
	mu      sync.RWMutex
	viewers map[string]map[chan []byte]struct{}
}

func NewStreamHub() *StreamHub {
	return &StreamHub{
		viewers: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe registers a viewer for a device's frames. The returned channel is
// buffered; the caller must Unsubscribe with the same channel when done.
func (h *StreamHub) Subscribe(deviceID string) chan []byte {
	ch := make(chan []byte, 4)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.viewers[deviceID] == nil {
		h.viewers[deviceID] = make(map[chan []byte]struct{})
	}
	h.viewers[deviceID][ch] = struct{}{}
	return ch
}

func (h *StreamHub) Unsubscribe(deviceID string, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.viewers[deviceID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(h.viewers, deviceID)
		}
	}
}

// Publish delivers a frame to every viewer of the device. Non-blocking: a
// viewer whose buffer is full misses this frame.
func (h *StreamHub) Publish(deviceID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.viewers[deviceID] {
		select {
		case ch <- frame:
		default:
		}
	}
}

// ViewerCount reports how many viewers are attached to a device.
func (h *StreamHub) ViewerCount(deviceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers[deviceID])
}
