package rews

// Logger is the minimal logging surface the library writes to. Callers can
// plug any structured logger behind it; the default is a no-op.
type Logger interface {
	WithField(key string, value any) Logger
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (l nopLogger) WithField(string, any) Logger { return l }
func (l nopLogger) Debugf(string, ...any)        {}
func (l nopLogger) Infof(string, ...any)         {}
func (l nopLogger) Warnf(string, ...any)         {}
func (l nopLogger) Errorf(string, ...any)        {}
