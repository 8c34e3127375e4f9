package core

// MaxBatchItems is the largest number of items accepted by a single
// batch encryption
const MaxBatchItems = 100

// EncryptRequest asks to encrypt a value for an account
type EncryptRequest struct {
	// Credential is the payment key forwarded to the key manager
	Credential string

	AccountID string

	// GroupID scopes the key used. It defaults to the private group
	// of the account when empty
	GroupID string

	Value []byte
}

// EncryptResponse holds the descriptor of the encrypted value
type EncryptResponse struct {
	EncryptedValue string
	KeyID          string
	Attestation    *string
}

type DecryptRequest struct {
	Credential string
	AccountID  string
	GroupID    string

	// Ciphertext is either a descriptor or raw base64 ciphertext
	Ciphertext string
}

// DecryptResponse holds the decrypted value. Plaintext is always set
// and replaces invalid UTF-8 sequences, PlaintextUTF8 is nil when the
// value is not valid text
type DecryptResponse struct {
	Plaintext     string
	PlaintextUTF8 *string
	KeyID         string
}

type BatchItem struct {
	Key   string
	Value []byte
}

type BatchEncryptRequest struct {
	Credential string
	AccountID  string
	GroupID    string
	Items      []BatchItem
}

// BatchItemResult is the outcome of a single item of a batch. A
// failed item has an Error and an empty EncryptedValue
type BatchItemResult struct {
	Key            string
	EncryptedValue string
	Error          *string
}

type BatchEncryptResponse struct {
	KeyID string
	Items []BatchItemResult
}

type PrepareEncryptRequest struct {
	AccountID string
	GroupID   string
	Value     []byte
}

type PrepareDecryptRequest struct {
	AccountID  string
	GroupID    string
	Ciphertext string
}

// ResultRequest asks for the outcome of a submitted transaction
type ResultRequest struct {
	TxHash string

	// SenderID overrides the signer used to look the transaction up
	SenderID string
}
