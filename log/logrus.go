package log

import "github.com/sirupsen/logrus"

// NewLogrus adapts a logrus logger to the SDK Logger interface.
//
// Passing nil uses the logrus standard logger.
func NewLogrus(l logrus.FieldLogger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &logrusAdapter{l: l}
}

type logrusAdapter struct {
	l logrus.FieldLogger
}

func (a *logrusAdapter) Debugf(format string, args ...any) { a.l.Debugf(format, args...) }
func (a *logrusAdapter) Infof(format string, args ...any)  { a.l.Infof(format, args...) }
func (a *logrusAdapter) Warnf(format string, args ...any)  { a.l.Warnf(format, args...) }
func (a *logrusAdapter) Errorf(format string, args ...any) { a.l.Errorf(format, args...) }
