package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newBufferLogger(level logrus.Level) (Logger, *bytes.Buffer) {
	buffer := bytes.NewBufferString("")
	return NewLogrus(LogrusLoggerProperties{
		Level:     level,
		Output:    buffer,
		Formatter: &logrus.JSONFormatter{TimestampFormat: "none"},
	}), buffer
}

func TestLoggerLevels(t *testing.T) {
	ctx := PutTraceID(context.Background(), "trace-1")
	fields := MapFields{"account_id": "alice.near", "action": "encrypt"}
	logger, buffer := newBufferLogger(logrus.WarnLevel)

	logger.Debug(ctx, "some message", fields)
	assert.Equal(t, "", buffer.String())

	logger.Info(ctx, "some message", fields)
	assert.Equal(t, "", buffer.String())

	logger.Warn(ctx, "some message", fields)
	assert.Equal(t, "{"+
		"\"account_id\":\"alice.near\","+
		"\"action\":\"encrypt\","+
		"\"level\":\"warning\","+
		"\"msg\":\"some message\","+
		"\"time\":\"none\","+
		"\"traceId\":\"trace-1\""+
		"}\n", buffer.String())
	buffer.Reset()

	logger.Error(ctx, "some message", fields)
	assert.Equal(t, "{"+
		"\"account_id\":\"alice.near\","+
		"\"action\":\"encrypt\","+
		"\"level\":\"error\","+
		"\"msg\":\"some message\","+
		"\"time\":\"none\","+
		"\"traceId\":\"trace-1\""+
		"}\n", buffer.String())
}

func TestLoggerForClass(t *testing.T) {
	logger, buffer := newBufferLogger(logrus.DebugLevel)

	entry := logger.ForClass("ledger", "Resolver")
	entry.Debug(context.Background(), "resolved", MapFields{"tx_hash": "abc"})

	assert.Equal(t, "{"+
		"\"class\":\"Resolver\","+
		"\"level\":\"debug\","+
		"\"msg\":\"resolved\","+
		"\"pkg\":\"ledger\","+
		"\"time\":\"none\","+
		"\"tx_hash\":\"abc\""+
		"}\n", buffer.String())
}

func TestLoggerDefaultLevelIsInfo(t *testing.T) {
	buffer := bytes.NewBufferString("")
	logger := NewLogrus(LogrusLoggerProperties{Output: buffer})

	logger.Debug(context.Background(), "hidden")
	assert.Equal(t, "", buffer.String())

	logger.Info(context.Background(), "shown")
	assert.Contains(t, buffer.String(), "\"msg\":\"shown\"")
}

func TestLoggerSkipsNilLoggable(t *testing.T) {
	logger, buffer := newBufferLogger(logrus.InfoLevel)
	var fields MapFields

	logger.Info(context.Background(), "message", nil, fields)

	assert.Contains(t, buffer.String(), "\"msg\":\"message\"")
}
