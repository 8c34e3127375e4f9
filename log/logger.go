package log

import "context"

// Fields collects the structured key/value pairs of a log entry
type Fields interface {
	Add(key string, value interface{})
}

// Loggable is implemented by anything that can describe itself
// as a set of log fields. Errors and configuration structs
// implement it so they can be passed to a Logger directly
type Loggable interface {
	Log(fields Fields)
}

// MapFields is the simplest Loggable, a set of literal fields
type MapFields map[string]interface{}

// Log implementation of Loggable for MapFields
func (m MapFields) Log(fields Fields) {
	for key, value := range m {
		fields.Add(key, value)
	}
}

// Logger is the logging facade used across the gateway
type Logger interface {
	// ForClass returns a child logger that tags all entries with
	// the package and type emitting them
	ForClass(pkg string, class string) Logger

	Debug(ctx context.Context, msg string, loggable ...Loggable)
	Info(ctx context.Context, msg string, loggable ...Loggable)
	Warn(ctx context.Context, msg string, loggable ...Loggable)
	Error(ctx context.Context, msg string, loggable ...Loggable)
	Fatal(ctx context.Context, msg string, loggable ...Loggable)
}
