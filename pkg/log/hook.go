package log

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ChannelHook forwards short log lines into a buffered channel for display.
// Lines are dropped when the reader falls behind.
type ChannelHook struct {
	ch     chan string
	levels []logrus.Level
}

// NewChannelHook returns a hook buffering up to size lines at minLevel or more severe.
func NewChannelHook(size int, minLevel logrus.Level) *ChannelHook {
	if size <= 0 {
		size = 10
	}
	return &ChannelHook{
		ch:     make(chan string, size),
		levels: append([]logrus.Level(nil), logrus.AllLevels[:minLevel+1]...),
	}
}

// Levels implements logrus.Hook.
func (h *ChannelHook) Levels() []logrus.Level {
	return h.levels
}

// Fire implements logrus.Hook.
func (h *ChannelHook) Fire(e *logrus.Entry) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] %s", e.Time.Format("15:04:05"), e.Message)
	writeFields(&b, e.Data)
	select {
	case h.ch <- b.String():
	default:
	}
	return nil
}

// Messages returns the channel the hook writes to.
func (h *ChannelHook) Messages() <-chan string {
	return h.ch
}
