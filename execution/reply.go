package execution

import (
	"encoding/json"
	stderr "errors"

	"github.com/tidwall/gjson"
)

// ErrNotObject is returned when a reply body is not a JSON object
var ErrNotObject = stderr.New("reply is not a JSON object")

// Reply is the JSON object returned by the key manager. Fields are
// read on demand and every accessor reports whether the field was
// present, so an absent field is never confused with an empty one
type Reply struct {
	raw gjson.Result
}

// ParseReply parses a reply body
func ParseReply(body []byte) (Reply, error) {
	if !gjson.ValidBytes(body) {
		return Reply{}, stderr.New("reply is not valid JSON")
	}

	raw := gjson.ParseBytes(body)
	if !raw.IsObject() {
		return Reply{}, ErrNotObject
	}

	return Reply{raw: raw}, nil
}

// Raw returns the reply as it was received
func (r Reply) Raw() json.RawMessage {
	return json.RawMessage(r.raw.Raw)
}

// Text returns the value of a string field. Fields that are absent
// or hold anything other than a string are reported as absent
func (r Reply) Text(field string) *string {
	return text(r.raw.Get(field))
}

// Rejection returns the text of the error field when the service
// rejected the command. A string error is returned as is, any other
// JSON value is returned in its serialized form
func (r Reply) Rejection() (string, bool) {
	v := r.raw.Get("error")
	if !v.Exists() {
		return "", false
	}

	if v.Type == gjson.String {
		return v.String(), true
	}

	return v.Raw, true
}

// EncryptOutput is the typed output of the encrypt action
type EncryptOutput struct {
	CiphertextB64 *string
	KeyID         *string
	Attestation   *string
}

// DecryptOutput is the typed output of the decrypt action
type DecryptOutput struct {
	PlaintextB64  *string
	PlaintextUTF8 *string
	KeyID         *string
}

// BatchOutput is the typed output of the batch_encrypt action. All
// the items share the key id of the group
type BatchOutput struct {
	KeyID *string
	Items []BatchItemOutput
}

type BatchItemOutput struct {
	Key           *string
	CiphertextB64 *string
	Error         *string
}

// Encrypt reads the reply as the output of an encrypt action
func (r Reply) Encrypt() EncryptOutput {
	return EncryptOutput{
		CiphertextB64: r.Text("ciphertext_b64"),
		KeyID:         r.Text("key_id"),
		Attestation:   r.Text("attestation_hash"),
	}
}

// Decrypt reads the reply as the output of a decrypt action
func (r Reply) Decrypt() DecryptOutput {
	return DecryptOutput{
		PlaintextB64:  r.Text("plaintext_b64"),
		PlaintextUTF8: r.Text("plaintext_utf8"),
		KeyID:         r.Text("key_id"),
	}
}

// Batch reads the reply as the output of a batch_encrypt action.
// A missing or malformed items list yields no items
func (r Reply) Batch() BatchOutput {
	output := BatchOutput{KeyID: r.Text("key_id")}

	items := r.raw.Get("items")
	if !items.IsArray() {
		return output
	}

	for _, item := range items.Array() {
		output.Items = append(output.Items, BatchItemOutput{
			Key:           text(item.Get("key")),
			CiphertextB64: text(item.Get("ciphertext_b64")),
			Error:         text(item.Get("error")),
		})
	}

	return output
}

func text(v gjson.Result) *string {
	if v.Type != gjson.String {
		return nil
	}

	s := v.String()
	return &s
}
