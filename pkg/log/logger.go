// Package log is the logging facade used across rrteleop.
package log

// Logger is the subset of logrus the rest of the module depends on.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(key string, value interface{}) Logger
}
