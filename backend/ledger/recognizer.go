package ledger

import (
	"github.com/Kampouse/fastkv-server/envelope"
	"github.com/Kampouse/fastkv-server/execution"
	"github.com/tidwall/gjson"
)

// Recognizer identifies one shape of program output in a log line.
// Recognizers are tried in order and the first one that matches a
// line produces the result of the transaction
type Recognizer struct {
	// Name identifies the recognizer in logs
	Name string

	// Match reports whether the log object has the shape
	Match func(obj gjson.Result) bool

	// Extract builds the result from a matching log object
	Extract func(obj gjson.Result) interface{}
}

// EncryptResult is the result of a deferred encryption
type EncryptResult struct {
	EncryptedValue string  `json:"encrypted_value"`
	KeyID          string  `json:"key_id"`
	Attestation    *string `json:"attestation,omitempty"`
}

// DecryptResult is the result of a deferred decryption
type DecryptResult struct {
	Plaintext string `json:"plaintext"`
	KeyID     string `json:"key_id"`
}

// EncryptRecognizer matches the output of the encrypt action and
// rewraps the ciphertext as a descriptor
var EncryptRecognizer = Recognizer{
	Name: "encrypt",
	Match: func(obj gjson.Result) bool {
		return obj.Get("ciphertext_b64").Type == gjson.String
	},
	Extract: func(obj gjson.Result) interface{} {
		keyID := obj.Get("key_id").String()
		return EncryptResult{
			EncryptedValue: envelope.Wrap(keyID, obj.Get("ciphertext_b64").String()),
			KeyID:          keyID,
			Attestation:    optional(obj.Get("attestation_hash")),
		}
	},
}

// DecryptRecognizer matches the output of the decrypt action. The
// text form of the plaintext is preferred, otherwise the base64 form
// is decoded
var DecryptRecognizer = Recognizer{
	Name: "decrypt",
	Match: func(obj gjson.Result) bool {
		return obj.Get("plaintext_utf8").Type == gjson.String ||
			obj.Get("plaintext_b64").Type == gjson.String
	},
	Extract: func(obj gjson.Result) interface{} {
		result := DecryptResult{KeyID: obj.Get("key_id").String()}

		if v := obj.Get("plaintext_utf8"); v.Type == gjson.String {
			result.Plaintext = v.String()
		} else {
			result.Plaintext, _ = execution.DecodePlaintext(obj.Get("plaintext_b64").String())
		}

		return result
	},
}

// DefaultRecognizers returns the recognizers for the outputs of the
// actions available on the deferred path
func DefaultRecognizers() []Recognizer {
	return []Recognizer{EncryptRecognizer, DecryptRecognizer}
}

func optional(v gjson.Result) *string {
	if v.Type != gjson.String {
		return nil
	}

	s := v.String()
	return &s
}
