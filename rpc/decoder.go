package rpc

import (
	"encoding/json"
	stderr "errors"
	"io"

	"github.com/pkg/errors"
)

// ErrLimitExceeded signals that the underlying reader has more
// available bytes than the expected limit
var ErrLimitExceeded = stderr.New("read limit exceeded")

// Decoder for payloads
type Decoder interface {
	// Decode decodes the provided payload with its format from the
	// provided reader. In case of failure it is possible a partial
	// read has occurred
	Decode(r io.Reader, v interface{}) error
}

// JsonDecoder is a payload decoder that deserializes from JSON
type JsonDecoder struct{}

// Decode is the implementation of Decoder for JsonDecoder
func (e JsonDecoder) Decode(reader io.Reader, v interface{}) error {
	return errors.Wrap(json.NewDecoder(reader).Decode(v), "failed to decode json")
}

// DecodeWithLimit decodes the payload in the reader failing with
// ErrLimitExceeded if the reader holds more than limit bytes
func (e JsonDecoder) DecodeWithLimit(reader io.Reader, v interface{}, limit int64) error {
	r := &limitReader{
		// one byte more than the limit is read to find out whether the
		// reader has more data than allowed
		reader: io.LimitReader(reader, limit+1),
		limit:  limit,
	}

	err := e.Decode(r, v)
	if r.exceeded {
		return ErrLimitExceeded
	}

	return err
}

type limitReader struct {
	reader   io.Reader
	count    int64
	limit    int64
	exceeded bool
}

func (r *limitReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.count += int64(n)
	if r.count > r.limit {
		r.exceeded = true
		return 0, ErrLimitExceeded
	}

	return n, err
}
