package gateway_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Kampouse/fastkv-server/envelope"
	"github.com/Kampouse/fastkv-server/gateway/gatewaytest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var paymentKey = map[string]string{"X-Payment-Key": "pk_123"}

func newGateway(t *testing.T, args ...string) *gatewaytest.Gateway {
	g, err := gatewaytest.NewGateway(context.Background(), args...)
	require.Nil(t, err)
	t.Cleanup(g.Close)
	return g
}

func decode(t *testing.T, body []byte) map[string]interface{} {
	var m map[string]interface{}
	require.Nil(t, json.Unmarshal(body, &m))
	return m
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	g := newGateway(t)

	res := g.Request("POST", "/v1/kv/encrypted/encrypt", map[string]interface{}{
		"account_id": "alice.near",
		"value":      "hello",
	}, paymentKey)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	encrypted := decode(t, res.Body.Bytes())
	descriptor := encrypted["encrypted_value"].(string)
	assert.Equal(t, gatewaytest.StubKeyID, encrypted["key_id"])
	assert.Equal(t, "stub-attestation", encrypted["attestation"])

	ciphertext, err := envelope.Decode(descriptor)
	require.Nil(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hello")), ciphertext)

	input := gjson.Parse(g.Enclave.LastInput())
	assert.Equal(t, "encrypt", input.Get("action").String())
	assert.Equal(t, "alice.near/private", input.Get("group_id").String())
	assert.Equal(t, "alice.near", input.Get("account_id").String())
	assert.Equal(t, "pk_123", g.Enclave.LastPaymentKey())

	res = g.Request("POST", "/v1/kv/encrypted/decrypt", map[string]interface{}{
		"account_id": "alice.near",
		"ciphertext": descriptor,
	}, paymentKey)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.JSONEq(t, `{"plaintext":"hello","plaintext_utf8":"hello","key_id":"stub-key"}`, res.Body.String())
}

func TestEncryptMissingPaymentKey(t *testing.T) {
	g := newGateway(t)

	res := g.Request("POST", "/v1/kv/encrypted/encrypt", map[string]interface{}{
		"account_id": "alice.near",
		"value":      "hello",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, float64(3001), decode(t, res.Body.Bytes())["errorCode"])
	assert.Equal(t, 0, g.Enclave.Calls())
}

func TestEncryptInvalidAccount(t *testing.T) {
	g := newGateway(t)

	res := g.Request("POST", "/v1/kv/encrypted/encrypt", map[string]interface{}{
		"account_id": "Alice!",
		"value":      "hello",
	}, paymentKey)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, float64(2006), decode(t, res.Body.Bytes())["errorCode"])
	assert.Equal(t, 0, g.Enclave.Calls())
}

func TestEncryptRejectedByService(t *testing.T) {
	g := newGateway(t)

	res := g.Request("POST", "/v1/kv/encrypted/encrypt", map[string]interface{}{
		"account_id": "alice.near",
		"value":      "hello",
	}, map[string]string{"X-Payment-Key": gatewaytest.RejectedPaymentKey})

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.JSONEq(t, `{"errorCode":4001,"description":"The key management service rejected the request.",`+
		`"cause":"payment key has no balance"}`, res.Body.String())
}

func TestEncryptServiceUnavailable(t *testing.T) {
	g := newGateway(t)
	g.Enclave.Close()

	res := g.Request("POST", "/v1/kv/encrypted/encrypt", map[string]interface{}{
		"account_id": "alice.near",
		"value":      "hello",
	}, paymentKey)

	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.JSONEq(t, `{"errorCode":5001,"description":"The key management service could not be reached."}`,
		res.Body.String())
}

func TestDecryptMalformedDescriptor(t *testing.T) {
	g := newGateway(t)

	res := g.Request("POST", "/v1/kv/encrypted/decrypt", map[string]interface{}{
		"account_id": "alice.near",
		"ciphertext": "enc:AES256:only-three",
	}, paymentKey)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, float64(2007), decode(t, res.Body.Bytes())["errorCode"])
	assert.Equal(t, 0, g.Enclave.Calls())
}

func TestBatchEncryptPartialFailure(t *testing.T) {
	g := newGateway(t)

	res := g.Request("POST", "/v1/kv/encrypted/batch-encrypt", map[string]interface{}{
		"account_id": "alice.near",
		"group_id":   "alice.near/shared",
		"items": []map[string]string{
			{"key": "a", "value": "1"},
			{"key": gatewaytest.FailingItemKey, "value": "2"},
			{"key": "c", "value": "3"},
		},
	}, paymentKey)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	assert.JSONEq(t, `{"key_id":"stub-key","items":[`+
		`{"key":"a","encrypted_value":"enc:AES256:stub-key:MQ=="},`+
		`{"key":"fail","encrypted_value":"","error":"item rejected"},`+
		`{"key":"c","encrypted_value":"enc:AES256:stub-key:Mw=="}]}`, res.Body.String())
	assert.Equal(t, "alice.near/shared", gjson.Get(g.Enclave.LastInput(), "group_id").String())
}

func TestBatchEncryptEmpty(t *testing.T) {
	g := newGateway(t)

	res := g.Request("POST", "/v1/kv/encrypted/batch-encrypt", map[string]interface{}{
		"account_id": "alice.near",
		"items":      []map[string]string{},
	}, paymentKey)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, float64(2008), decode(t, res.Body.Bytes())["errorCode"])
}

func TestPrepareEncrypt(t *testing.T) {
	g := newGateway(t)

	res := g.Request("POST", "/v1/kv/encrypted/prepare-encrypt", map[string]interface{}{
		"account_id": "alice.near",
		"value":      "hello",
	}, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	body := gjson.Parse(res.Body.String())
	assert.Equal(t, "outlayer.near", body.Get("transaction.receiver_id").String())
	assert.Equal(t, "request_execution", body.Get("transaction.method_name").String())
	assert.Equal(t, "50000000000000000000000", body.Get("transaction.deposit").String())
	assert.Equal(t, "300000000000000", body.Get("transaction.gas").String())
	assert.Equal(t, "https://wallet.near.org/sign", body.Get("submit_url").String())

	args, err := base64.StdEncoding.DecodeString(body.Get("transaction.args").String())
	require.Nil(t, err)
	input := gjson.Parse(gjson.GetBytes(args, "input_data").String())
	assert.Equal(t, "encrypt", input.Get("action").String())
	assert.Equal(t, "aGVsbG8=", input.Get("plaintext_b64").String())
	assert.Equal(t, 0, g.Enclave.Calls())
}

func TestPrepareDecryptMalformedIsEmbedded(t *testing.T) {
	g := newGateway(t)

	res := g.Request("POST", "/v1/kv/encrypted/prepare-decrypt", map[string]interface{}{
		"account_id": "alice.near",
		"ciphertext": "enc:broken",
	}, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	args, err := base64.StdEncoding.DecodeString(gjson.Get(res.Body.String(), "transaction.args").String())
	require.Nil(t, err)
	input := gjson.Parse(gjson.GetBytes(args, "input_data").String())
	assert.Equal(t, "enc:broken", input.Get("ciphertext_b64").String())
}

func TestResultEncryptOutput(t *testing.T) {
	g := newGateway(t)

	res := g.Request("GET", "/v1/kv/encrypted/result?tx_hash=abc", nil, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	assert.JSONEq(t, `{"success":true,"result":{"encrypted_value":"enc:AES256:k1:QQ==","key_id":"k1"},"error":null}`,
		res.Body.String())
	assert.Equal(t, "kampouse.near", g.Ledger.LastSigner())
}

func TestResultSenderOverride(t *testing.T) {
	g := newGateway(t)

	res := g.Request("GET", "/v1/kv/encrypted/result?tx_hash=abc&sender_id=bob.near", nil, nil)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "bob.near", g.Ledger.LastSigner())
}

func TestResultLedgerError(t *testing.T) {
	g := newGateway(t)

	res := g.Request("GET", "/v1/kv/encrypted/result?tx_hash="+gatewaytest.UnknownTxHash, nil, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	body := gjson.Parse(res.Body.String())
	assert.False(t, body.Get("success").Bool())
	assert.Equal(t, gjson.Null, body.Get("result").Type)
	assert.Contains(t, body.Get("error").String(), "doesn't exist")
}

func TestResultLedgerErrorWithStatus(t *testing.T) {
	g := newGateway(t)

	res := g.Request("GET", "/v1/kv/encrypted/result?tx_hash="+gatewaytest.MalformedTxHash, nil, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	body := gjson.Parse(res.Body.String())
	assert.False(t, body.Get("success").Bool())
	assert.Equal(t, gjson.Null, body.Get("result").Type)
	assert.Contains(t, body.Get("error").String(), "invalid transaction hash")
}

func TestResultMissingHash(t *testing.T) {
	g := newGateway(t)

	res := g.Request("GET", "/v1/kv/encrypted/result", nil, nil)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, float64(2000), decode(t, res.Body.Bytes())["errorCode"])
}

func TestResultLedgerUnavailable(t *testing.T) {
	g := newGateway(t)
	g.Ledger.Close()

	res := g.Request("GET", "/v1/kv/encrypted/result?tx_hash=abc", nil, nil)

	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestBodyLimit(t *testing.T) {
	g := newGateway(t, "--bind_public.max_body_bytes=32")

	res := g.Request("POST", "/v1/kv/encrypted/encrypt", map[string]interface{}{
		"account_id": "alice.near",
		"value":      "a value that does not fit in the configured limit",
	}, paymentKey)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, float64(2002), decode(t, res.Body.Bytes())["errorCode"])
}

func TestHealthAndVersion(t *testing.T) {
	g := newGateway(t)

	res := g.Request("GET", "/v1/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"health":"healthy"}`, res.Body.String())

	res = g.Request("GET", "/v1/api/version", nil, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"version":1}`, res.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	g := newGateway(t)

	res := g.Request("GET", "/v0/api/health", nil, nil)

	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestCorsPreflight(t *testing.T) {
	g := newGateway(t)

	res := g.Request("OPTIONS", "/v1/kv/encrypted/encrypt", nil, map[string]string{
		"Origin":                         "https://app.example.com",
		"Access-Control-Request-Method":  "POST",
		"Access-Control-Request-Headers": "X-Payment-Key",
	})

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 0, g.Enclave.Calls())
}

func TestRouteMetrics(t *testing.T) {
	g := newGateway(t)

	g.Request("GET", "/v1/api/health", nil, nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(g.Metrics.RequestCounter("GET /v1/api/health", "200")))
}

func TestStorageBuilderFromConfig(t *testing.T) {
	g := newGateway(t, "--storage.table=fastkv.s_kv_last")

	q := g.Group.Storage.PrefixScan("user/")

	assert.Contains(t, q.Statement, "fastkv.s_kv_last")
	assert.Equal(t, "user/", q.Start)
}

func TestServiceGroupClose(t *testing.T) {
	g, err := gatewaytest.NewGateway(context.Background())
	require.Nil(t, err)

	require.NotNil(t, g.Group.Ledger)
	assert.NotPanics(t, g.Close)
}
