package encrypted

import (
	stderr "errors"
	"net/url"
)

// EncryptRequest asks to encrypt a value for an account. Used by the
// direct and the deferred encryption
type EncryptRequest struct {
	// AccountID is the account the value belongs to
	AccountID string `json:"account_id"`

	// Value is the plaintext. It must be present but may be empty
	Value *string `json:"value"`

	// GroupID scopes the key used for the value, it defaults to the
	// private group of the account
	GroupID string `json:"group_id,omitempty"`
}

// EncryptResponse holds the descriptor of the encrypted value
type EncryptResponse struct {
	// EncryptedValue is the descriptor to store and later pass to decrypt
	EncryptedValue string `json:"encrypted_value"`

	// KeyID identifies the key used by the key manager
	KeyID string `json:"key_id"`

	// Attestation is forwarded from the key manager when it returns one.
	// It is not verified
	Attestation *string `json:"attestation,omitempty"`
}

// DecryptRequest asks to decrypt a value. Used by the direct and the
// deferred decryption
type DecryptRequest struct {
	AccountID string `json:"account_id"`

	// Ciphertext is a descriptor returned by encrypt, raw base64
	// ciphertext is also accepted
	Ciphertext string `json:"ciphertext"`

	GroupID string `json:"group_id,omitempty"`
}

// DecryptResponse holds the decrypted value
type DecryptResponse struct {
	// Plaintext is always set. Invalid UTF-8 sequences are replaced
	Plaintext string `json:"plaintext"`

	// PlaintextUTF8 is null when the value is not valid UTF-8
	PlaintextUTF8 *string `json:"plaintext_utf8"`

	KeyID string `json:"key_id"`
}

type BatchItem struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
}

// BatchEncryptRequest encrypts up to 100 items with the same key
type BatchEncryptRequest struct {
	AccountID string      `json:"account_id"`
	Items     []BatchItem `json:"items"`
	GroupID   string      `json:"group_id,omitempty"`
}

// BatchItemResult is the outcome of an item. A failed item has an
// error and an empty encrypted_value
type BatchItemResult struct {
	Key            string  `json:"key"`
	EncryptedValue string  `json:"encrypted_value"`
	Error          *string `json:"error,omitempty"`
}

type BatchEncryptResponse struct {
	KeyID string            `json:"key_id"`
	Items []BatchItemResult `json:"items"`
}

// ResultRequest asks for the outcome of a transaction the caller
// submitted. It is read from the query of the request
type ResultRequest struct {
	TxHash string

	// SenderID is the signer of the transaction, the configured signer
	// is used when empty
	SenderID string
}

// DecodeQuery is the implementation of rpc.QueryDecoder for ResultRequest
func (r *ResultRequest) DecodeQuery(values url.Values) error {
	r.TxHash = values.Get("tx_hash")
	r.SenderID = values.Get("sender_id")

	if len(r.TxHash) == 0 {
		return stderr.New("tx_hash query parameter is required")
	}

	return nil
}
