// Package facecam runs the webcam face-detection polling loop.
package facecam

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sahayak-ai/sahayak/internal/monitor/metrics"
)

// FrameSource supplies webcam frames captured by the browser.
type FrameSource interface {
	// Frame returns the most recent frame, or false when none is available.
	Frame() ([]byte, bool)
	// Live reports whether the camera stream is still producing frames.
	Live() bool
}

// CheckFunc submits one frame for face detection and reports presence.
type CheckFunc func(ctx context.Context, frame []byte) (bool, error)

// ErrAlreadyRunning is returned when Start is called on a running detector.
var ErrAlreadyRunning = errors.New("face detection already running")

// Detector polls the current frame source on a fixed interval, submitting
// frames for detection and tracking whether a face is present.
type Detector struct {
	check    CheckFunc
	interval time.Duration
	log      *slog.Logger

	mu         sync.Mutex
	source     FrameSource
	cancel     context.CancelFunc
	done       chan struct{}
	present    bool
	lastSeen   time.Time
	onPresence func(bool)
}

// NewDetector creates a detector. interval defaults to 1s.
func NewDetector(check CheckFunc, interval time.Duration, log *slog.Logger) *Detector {
	if interval == 0 {
		interval = time.Second
	}
	return &Detector{
		check:    check,
		interval: interval,
		log:      log,
	}
}

// SetSource attaches the camera stream source.
func (d *Detector) SetSource(src FrameSource) {
	d.mu.Lock()
	d.source = src
	d.mu.Unlock()
}

// ClearSource detaches the camera stream source.
func (d *Detector) ClearSource() {
	d.mu.Lock()
	d.source = nil
	d.mu.Unlock()
}

// HasSource reports whether a live camera stream is attached.
func (d *Detector) HasSource() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source != nil && d.source.Live()
}

// SetOnPresence registers a callback invoked when face presence changes.
func (d *Detector) SetOnPresence(fn func(bool)) {
	d.mu.Lock()
	d.onPresence = fn
	d.mu.Unlock()
}

// Running reports whether the polling loop is active.
func (d *Detector) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// Present reports whether a face was seen on the last check.
func (d *Detector) Present() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.present
}

// Start launches the polling loop. The loop idles while no frame is
// available yet, so starting before the browser registers a stream is fine.
func (d *Detector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	go d.run(runCtx, d.done)

	d.log.Info("face detection started", "interval", d.interval)
	return nil
}

// Stop cancels the polling loop and waits for it to exit. Safe to call when
// not running.
func (d *Detector) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	done := d.done
	d.cancel = nil
	d.done = nil
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	d.log.Info("face detection stopped")
}

// Restart stops and relaunches the loop. Fails when no live camera stream
// is attached. The settle delay between stop and restart belongs to the
// recovery strategy, not here.
func (d *Detector) Restart(ctx context.Context) error {
	d.Stop()
	if !d.HasSource() {
		return errors.New("no live camera stream")
	}
	return d.Start(ctx)
}

func (d *Detector) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.checkOnce(ctx)
		}
	}
}

func (d *Detector) checkOnce(ctx context.Context) {
	d.mu.Lock()
	src := d.source
	d.mu.Unlock()
	if src == nil {
		return
	}

	frame, ok := src.Frame()
	if !ok {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, d.interval)
	defer cancel()

	detected, err := d.check(callCtx, frame)
	if err != nil {
		metrics.FramesChecked.WithLabelValues("failure").Inc()
		d.log.Debug("face detection check failed", "error", err)
		return
	}
	metrics.FramesChecked.WithLabelValues("success").Inc()

	d.mu.Lock()
	changed := detected != d.present
	d.present = detected
	if detected {
		d.lastSeen = time.Now()
		metrics.FacePresent.Set(1)
	} else {
		metrics.FacePresent.Set(0)
	}
	fn := d.onPresence
	d.mu.Unlock()

	if changed && fn != nil {
		fn(detected)
	}
}
