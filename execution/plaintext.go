package execution

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// DecodePlaintext decodes the base64 plaintext returned by the key
// manager. It never fails: when the input is not valid base64 the
// bytes decoded before the first invalid character are used. The
// first result is the UTF-8 rendering of the bytes with invalid
// sequences replaced, the second is the text itself or nil when the
// bytes are not valid UTF-8
func DecodePlaintext(plaintextB64 string) (string, *string) {
	// DecodeString returns the bytes written before an error
	p, _ := base64.StdEncoding.DecodeString(plaintextB64)

	s := string(p)
	if !utf8.Valid(p) {
		return strings.ToValidUTF8(s, string(utf8.RuneError)), nil
	}

	return s, &s
}
