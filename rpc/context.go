package rpc

import (
	"github.com/google/uuid"
)

const maxTraceIDLength = 64

// ParseTraceID returns the trace id provided by the caller when it is
// acceptable and a newly generated one otherwise
func ParseTraceID(s string) string {
	if len(s) == 0 || len(s) > maxTraceIDLength {
		return uuid.New().String()
	}

	for _, r := range s {
		if r <= ' ' || r > '~' {
			return uuid.New().String()
		}
	}

	return s
}
