package gatewaytest

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/tidwall/gjson"
)

const (
	// StubKeyID is the key id returned by the key manager stub
	StubKeyID = "stub-key"

	// RejectedPaymentKey is a payment key the key manager stub rejects
	RejectedPaymentKey = "pk_rejected"

	// FailingItemKey makes the key manager stub fail the batch item
	// with that key
	FailingItemKey = "fail"

	// UnknownTxHash is a transaction the ledger stub does not know
	UnknownTxHash = "unknown"

	// MalformedTxHash is a transaction hash the ledger stub refuses
	// with a 400 status and a JSON-RPC error body
	MalformedTxHash = "malformed"
)

// EnclaveStub is an in-process key manager. Encryption returns the
// plaintext as ciphertext and decryption returns the ciphertext as
// plaintext, so values round trip through it unchanged
type EnclaveStub struct {
	Server *httptest.Server

	mu          sync.Mutex
	paymentKeys []string
	inputs      []string
}

// NewEnclaveStub starts a new key manager stub
func NewEnclaveStub() *EnclaveStub {
	s := &EnclaveStub{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// Calls returns the number of requests received
func (s *EnclaveStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs)
}

// LastInput returns the input_data of the last request received
func (s *EnclaveStub) LastInput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inputs) == 0 {
		return ""
	}
	return s.inputs[len(s.inputs)-1]
}

// LastPaymentKey returns the payment key of the last request received
func (s *EnclaveStub) LastPaymentKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.paymentKeys) == 0 {
		return ""
	}
	return s.paymentKeys[len(s.paymentKeys)-1]
}

func (s *EnclaveStub) Close() {
	s.Server.Close()
}

func (s *EnclaveStub) serveHTTP(w http.ResponseWriter, req *http.Request) {
	body, err := ioutil.ReadAll(req.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	input := gjson.GetBytes(body, "input_data").String()
	paymentKey := req.Header.Get("X-Payment-Key")

	s.mu.Lock()
	s.inputs = append(s.inputs, input)
	s.paymentKeys = append(s.paymentKeys, paymentKey)
	s.mu.Unlock()

	if paymentKey == RejectedPaymentKey {
		writeJSON(w, map[string]interface{}{"error": "payment key has no balance"})
		return
	}

	cmd := gjson.Parse(input)
	switch cmd.Get("action").String() {
	case "encrypt":
		writeJSON(w, map[string]interface{}{
			"ciphertext_b64":   cmd.Get("plaintext_b64").String(),
			"key_id":           StubKeyID,
			"attestation_hash": "stub-attestation",
		})
	case "decrypt":
		writeJSON(w, map[string]interface{}{
			"plaintext_b64": cmd.Get("ciphertext_b64").String(),
			"key_id":        StubKeyID,
		})
	case "batch_encrypt":
		var items []map[string]interface{}
		for _, item := range cmd.Get("items").Array() {
			key := item.Get("key").String()
			if key == FailingItemKey {
				items = append(items, map[string]interface{}{"key": key, "error": "item rejected"})
				continue
			}
			items = append(items, map[string]interface{}{
				"key":            key,
				"ciphertext_b64": item.Get("plaintext_b64").String(),
			})
		}
		writeJSON(w, map[string]interface{}{"key_id": StubKeyID, "items": items})
	default:
		writeJSON(w, map[string]interface{}{"error": "unknown action"})
	}
}

// LedgerStub is an in-process ledger RPC endpoint. Every known
// transaction carries an encryption output in its logs
type LedgerStub struct {
	Server *httptest.Server

	mu      sync.Mutex
	signers []string
}

// NewLedgerStub starts a new ledger stub
func NewLedgerStub() *LedgerStub {
	s := &LedgerStub{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// LastSigner returns the signer of the last transaction lookup
func (s *LedgerStub) LastSigner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.signers) == 0 {
		return ""
	}
	return s.signers[len(s.signers)-1]
}

func (s *LedgerStub) Close() {
	s.Server.Close()
}

func (s *LedgerStub) serveHTTP(w http.ResponseWriter, req *http.Request) {
	body, err := ioutil.ReadAll(req.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	msg := gjson.ParseBytes(body)
	id := json.RawMessage(msg.Get("id").Raw)
	hash := msg.Get("params.0").String()

	s.mu.Lock()
	s.signers = append(s.signers, msg.Get("params.1").String())
	s.mu.Unlock()

	if hash == MalformedTxHash {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      id,
			"error": map[string]interface{}{
				"name":    "REQUEST_VALIDATION_ERROR",
				"code":    -32700,
				"message": "Parse error",
				"data":    "invalid transaction hash " + hash,
			},
		})
		return
	}

	if hash == UnknownTxHash {
		writeJSON(w, map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      id,
			"error": map[string]interface{}{
				"code":    -32000,
				"message": "Server error",
				"data":    "Transaction " + hash + " doesn't exist",
			},
		})
		return
	}

	writeJSON(w, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]interface{}{
			"receipts_outcome": []interface{}{
				map[string]interface{}{
					"outcome": map[string]interface{}{
						"logs": []string{
							"execution started",
							`{"ciphertext_b64":"QQ==","key_id":"k1"}`,
						},
					},
				},
			},
		},
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
