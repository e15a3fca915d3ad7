// Package notice holds the transient user-visible messages the assistant
// shows in the browser UI.
package notice

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sahayak-ai/sahayak/internal/monitor/metrics"
)

// Level classifies a notice for presentation.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one user-visible message. Sticky notices stay until manually
// dismissed; others auto-dismiss after their TTL.
type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Text      string    `json:"text"`
	Sticky    bool      `json:"sticky"`
	CreatedAt time.Time `json:"created_at"`
}

// Center owns the set of active notices and their dismissal timers.
type Center struct {
	mu       sync.Mutex
	active   map[string]Notice
	timers   map[string]*time.Timer
	onChange func([]Notice)
	closed   bool
	log      *slog.Logger
}

// NewCenter creates an empty notice center.
func NewCenter(log *slog.Logger) *Center {
	return &Center{
		active: make(map[string]Notice),
		timers: make(map[string]*time.Timer),
		log:    log,
	}
}

// SetOnChange registers a callback invoked with the active set whenever it
// changes. Used by the browser hub to push updates.
func (c *Center) SetOnChange(fn func([]Notice)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Publish shows a notice and returns its id. ttl > 0 auto-dismisses after
// ttl; ttl == 0 keeps the notice until Dismiss is called.
func (c *Center) Publish(level Level, text string, ttl time.Duration) string {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ""
	}

	n := Notice{
		ID:        uuid.New().String(),
		Level:     level,
		Text:      text,
		Sticky:    ttl == 0,
		CreatedAt: time.Now(),
	}
	c.active[n.ID] = n
	if ttl > 0 {
		id := n.ID
		c.timers[id] = time.AfterFunc(ttl, func() {
			c.Dismiss(id)
		})
	}
	metrics.ActiveNotices.Set(float64(len(c.active)))
	c.mu.Unlock()

	c.log.Info("notice published", "level", level, "text", text, "sticky", n.Sticky)
	c.notifyChange()
	return n.ID
}

// Dismiss removes a notice. Unknown ids are ignored.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	if _, ok := c.active[id]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.active, id)
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	metrics.ActiveNotices.Set(float64(len(c.active)))
	c.mu.Unlock()

	c.notifyChange()
}

// Active returns the active notices oldest first.
func (c *Center) Active() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, 0, len(c.active))
	for _, n := range c.active {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Close cancels all outstanding dismissal timers. Publish becomes a no-op.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}

func (c *Center) notifyChange() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(c.Active())
	}
}

// Info shows an informational notice. Implements recovery.Notifier.
func (c *Center) Info(text string, ttl time.Duration) string {
	return c.Publish(LevelInfo, text, ttl)
}

// Success shows a success notice auto-dismissed after ttl.
func (c *Center) Success(text string, ttl time.Duration) string {
	return c.Publish(LevelSuccess, text, ttl)
}

// Warning shows a sticky warning notice.
func (c *Center) Warning(text string) string {
	return c.Publish(LevelWarning, text, 0)
}

// Error shows a sticky error notice.
func (c *Center) Error(text string) string {
	return c.Publish(LevelError, text, 0)
}
