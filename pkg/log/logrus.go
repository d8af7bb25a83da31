package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogFile is the file name written inside the log directory.
const LogFile = "rrteleop.log"

var _ Logger = (*logrusLogger)(nil)

type logrusLogger struct {
	entry *logrus.Entry
}

type options struct {
	console io.Writer
	hooks   []logrus.Hook
}

// Option configures NewLogrusLogger.
type Option func(*options)

// WithConsole sets the console writer. Pass nil to log to the file only,
// which is what the terminal UI needs.
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// WithHook attaches a logrus hook such as ChannelHook.
func WithHook(h logrus.Hook) Option {
	return func(o *options) { o.hooks = append(o.hooks, h) }
}

// NewLogrusLogger returns a logger at the given level writing to stderr and,
// when dir is set, appending to dir/rrteleop.log.
func NewLogrusLogger(level, dir string, opts ...Option) (Logger, error) {
	o := options{console: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	l := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	l.SetFormatter(&SimpleFormatter{})

	var writers []io.Writer
	if o.console != nil {
		writers = append(writers, o.console)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory %q: %w", dir, err)
		}
		path := filepath.Join(dir, LogFile)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %q: %w", path, err)
		}
		writers = append(writers, f)
	}
	switch len(writers) {
	case 0:
		l.SetOutput(io.Discard)
	case 1:
		l.SetOutput(writers[0])
	default:
		l.SetOutput(io.MultiWriter(writers...))
	}

	for _, h := range o.hooks {
		l.AddHook(h)
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}, nil
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

// SimpleFormatter renders one line per entry:
//
//	2026/01/02 15:04:05.000000 [INF] message key=value
type SimpleFormatter struct {
	TimestampFormat string
}

// Format implements logrus.Formatter.
func (f *SimpleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	ts := f.TimestampFormat
	if ts == "" {
		ts = "2006/01/02 15:04:05.000000"
	}
	b.WriteString(entry.Time.Format(ts))
	fmt.Fprintf(b, " [%s] %s", levelTag(entry.Level), entry.Message)
	writeFields(b, entry.Data)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelTag(l logrus.Level) string {
	s := strings.ToUpper(l.String())
	if len(s) > 3 {
		s = s[:3]
	}
	return s
}

func writeFields(b *bytes.Buffer, data logrus.Fields) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, data[k])
	}
}
