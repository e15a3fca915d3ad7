package server

import (
	"sync"
	"time"
)

// FrameBuffer holds the most recent webcam frame pushed by the browser.
// It implements facecam.FrameSource: the stream counts as live while frames
// keep arriving within the live window.
type FrameBuffer struct {
	mu         sync.Mutex
	frame      []byte
	updated    time.Time
	liveWindow time.Duration
}

// NewFrameBuffer creates a buffer. liveWindow defaults to 10s.
func NewFrameBuffer(liveWindow time.Duration) *FrameBuffer {
	if liveWindow == 0 {
		liveWindow = 10 * time.Second
	}
	return &FrameBuffer{liveWindow: liveWindow}
}

// Push stores the latest frame.
func (b *FrameBuffer) Push(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame = frame
	b.updated = time.Now()
}

// Frame returns the most recent frame, or false when none has arrived yet.
func (b *FrameBuffer) Frame() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame == nil {
		return nil, false
	}
	return b.frame, true
}

// Live reports whether a frame arrived within the live window.
func (b *FrameBuffer) Live() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame != nil && time.Since(b.updated) < b.liveWindow
}
