package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New creates a new logger with the specified
// configuration writing to w
func New(config *Config, w io.Writer) Logger {
	props := LogrusLoggerProperties{
		Level:  logrus.InfoLevel,
		Output: w,
	}

	switch config.Level {
	case "debug":
		props.Level = logrus.DebugLevel
	case "warn":
		props.Level = logrus.WarnLevel
	case "error":
		props.Level = logrus.ErrorLevel
	}

	if config.Format == "text" {
		props.Formatter = &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}
	}

	return NewLogrus(props)
}
