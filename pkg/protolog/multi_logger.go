package protolog

// MultiLogger fans an event out to every wrapped Logger in order.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger wraps loggers for simultaneous logging (e.g. a file sink
// plus an in-memory ring buffer for `get_version`-adjacent debug tooling).
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
