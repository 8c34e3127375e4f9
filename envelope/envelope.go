// Package envelope implements the string descriptor used to carry an
// encrypted value between callers and the key management service.
//
// A descriptor has the shape
//
//	enc:<scheme>:<key_id>:<base64 ciphertext>
//
// The scheme tag versions the format. A new cipher gets a new tag, the
// number of segments never changes.
package envelope

import (
	"encoding/base64"
	stderr "errors"
	"fmt"
	"strings"

	"github.com/Kampouse/fastkv-server/errors"
)

const (
	// Prefix identifies a string as a descriptor
	Prefix = "enc:"

	// SchemeAES256 is the only scheme produced by the key manager
	SchemeAES256 = "AES256"

	tag      = "enc"
	segments = 4
)

// Descriptor is the parsed form of an encrypted value
type Descriptor struct {
	Scheme string
	KeyID  string

	// Ciphertext is the base64 encoded ciphertext as it appears in the
	// descriptor string
	Ciphertext string
}

// String returns the wire form of the descriptor
func (d Descriptor) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", tag, d.Scheme, d.KeyID, d.Ciphertext)
}

// Encode builds the descriptor for raw ciphertext bytes. The key id is
// passed through verbatim
func Encode(keyID string, ciphertext []byte) string {
	return Wrap(keyID, base64.StdEncoding.EncodeToString(ciphertext))
}

// Wrap builds the descriptor for ciphertext that is already base64
// encoded, which is what the key management service returns
func Wrap(keyID string, ciphertextB64 string) string {
	return Descriptor{
		Scheme:     SchemeAES256,
		KeyID:      keyID,
		Ciphertext: ciphertextB64,
	}.String()
}

// Parse parses a well formed descriptor. Any other input fails with
// ErrMalformedDescriptor, including strings that do not carry the
// descriptor prefix at all
func Parse(s string) (Descriptor, error) {
	parts := strings.Split(s, ":")
	if len(parts) != segments || parts[0] != tag || parts[1] != SchemeAES256 {
		return Descriptor{}, errors.New(errors.ErrMalformedDescriptor,
			stderr.New("encrypted value must have the form enc:AES256:<key_id>:<ciphertext>"))
	}

	return Descriptor{Scheme: parts[1], KeyID: parts[2], Ciphertext: parts[3]}, nil
}

// Decode extracts the base64 ciphertext to send to the key management
// service. A well formed descriptor yields its ciphertext segment, any
// other string with the descriptor prefix is rejected and strings
// without the prefix are treated as raw ciphertext
func Decode(s string) (string, error) {
	d, err := Parse(s)
	if err == nil {
		return d.Ciphertext, nil
	}

	if strings.HasPrefix(s, Prefix) {
		return "", err
	}

	return s, nil
}

// Normalize is the lenient form of Decode. Malformed descriptors are
// returned unchanged instead of being rejected
func Normalize(s string) string {
	if d, err := Parse(s); err == nil {
		return d.Ciphertext
	}

	return s
}
