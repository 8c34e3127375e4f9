package log

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type LogrusLoggerProperties struct {
	Formatter logrus.Formatter
	Level     logrus.Level
	Output    io.Writer
}

// LogrusLogger implements Logger on top of a logrus entry, so that
// class scoped loggers share the same root configuration
type LogrusLogger struct {
	entry *logrus.Entry
}

func NewLogrus(properties LogrusLoggerProperties) Logger {
	root := logrus.New()

	if properties.Formatter == nil {
		root.SetFormatter(&logrus.JSONFormatter{})
	} else {
		root.SetFormatter(properties.Formatter)
	}

	// the zero value of logrus.Level is PanicLevel, which would
	// silence everything
	if properties.Level == logrus.PanicLevel {
		root.SetLevel(logrus.InfoLevel)
	} else {
		root.SetLevel(properties.Level)
	}

	if properties.Output == nil {
		root.SetOutput(os.Stdout)
	} else {
		root.SetOutput(properties.Output)
	}

	return LogrusLogger{entry: logrus.NewEntry(root)}
}

func (l LogrusLogger) ForClass(pkg string, class string) Logger {
	return LogrusLogger{
		entry: l.entry.WithFields(logrus.Fields{
			"pkg":   pkg,
			"class": class,
		}),
	}
}

func (l LogrusLogger) Debug(ctx context.Context, msg string, loggables ...Loggable) {
	l.withFields(ctx, loggables).Debug(msg)
}

func (l LogrusLogger) Info(ctx context.Context, msg string, loggables ...Loggable) {
	l.withFields(ctx, loggables).Info(msg)
}

func (l LogrusLogger) Warn(ctx context.Context, msg string, loggables ...Loggable) {
	l.withFields(ctx, loggables).Warn(msg)
}

func (l LogrusLogger) Error(ctx context.Context, msg string, loggables ...Loggable) {
	l.withFields(ctx, loggables).Error(msg)
}

func (l LogrusLogger) Fatal(ctx context.Context, msg string, loggables ...Loggable) {
	l.withFields(ctx, loggables).Fatal(msg)
}

func (l LogrusLogger) withFields(ctx context.Context, loggables []Loggable) *logrus.Entry {
	fields := logrusFields{}

	for _, loggable := range loggables {
		if loggable != nil {
			loggable.Log(fields)
		}
	}

	if traceID := GetTraceID(ctx); len(traceID) > 0 {
		fields.Add("traceId", traceID)
	}

	return l.entry.WithFields(logrus.Fields(fields))
}

type logrusFields logrus.Fields

func (f logrusFields) Add(key string, value interface{}) {
	f[key] = value
}
