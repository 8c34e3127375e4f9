package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodePlaintext(t *testing.T) {
	lossy, text := DecodePlaintext("aGVsbG8=")

	assert.Equal(t, "hello", lossy)
	assert.Equal(t, "hello", *text)
}

func TestDecodePlaintextEmpty(t *testing.T) {
	lossy, text := DecodePlaintext("")

	assert.Equal(t, "", lossy)
	assert.Equal(t, "", *text)
}

func TestDecodePlaintextInvalidUTF8(t *testing.T) {
	// 0x68 0xff 0x69
	lossy, text := DecodePlaintext("aP9p")

	assert.Equal(t, "h�i", lossy)
	assert.Nil(t, text)
}

func TestDecodePlaintextInvalidBase64(t *testing.T) {
	// the first quantum decodes to "hel", the rest is dropped
	lossy, text := DecodePlaintext("aGVs!!!!")

	assert.Equal(t, "hel", lossy)
	assert.Equal(t, "hel", *text)
}
