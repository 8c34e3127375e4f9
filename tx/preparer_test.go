package tx

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/Kampouse/fastkv-server/execution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPreparer() *Preparer {
	return NewPreparer(execution.NewBuilder(execution.DefaultPolicy()), DefaultTemplate())
}

func decryptCommand() execution.Command {
	return execution.Command{
		Action:    execution.ActionDecrypt,
		GroupID:   "alice.near/private",
		AccountID: "alice.near",
		Fields:    map[string]interface{}{"ciphertext_b64": "QUJD"},
	}
}

func TestPrepareTemplate(t *testing.T) {
	prepared, err := newPreparer().Prepare(decryptCommand())

	assert.Nil(t, err)
	assert.Equal(t, "outlayer.near", prepared.Transaction.ReceiverID)
	assert.Equal(t, "request_execution", prepared.Transaction.MethodName)
	assert.Equal(t, "50000000000000000000000", prepared.Transaction.Deposit)
	assert.Equal(t, "300000000000000", prepared.Transaction.Gas)
	assert.Equal(t, "https://wallet.near.org/sign", prepared.SubmitURL)
	assert.NotEmpty(t, prepared.Instructions)
}

func TestPrepareArgsMatchDirectRequest(t *testing.T) {
	builder := execution.NewBuilder(execution.DefaultPolicy())
	preparer := NewPreparer(builder, DefaultTemplate())

	prepared, err := preparer.Prepare(decryptCommand())
	require.Nil(t, err)

	req, err := builder.Build(decryptCommand())
	require.Nil(t, err)
	direct, err := req.Marshal()
	require.Nil(t, err)

	args, err := base64.StdEncoding.DecodeString(prepared.Transaction.Args)
	require.Nil(t, err)
	assert.Equal(t, string(direct), string(args))
}

func TestPrepareArgsCarryCommand(t *testing.T) {
	prepared, err := newPreparer().Prepare(decryptCommand())
	require.Nil(t, err)

	args, err := base64.StdEncoding.DecodeString(prepared.Transaction.Args)
	require.Nil(t, err)

	var req execution.Request
	require.Nil(t, json.Unmarshal(args, &req))
	assert.Equal(t, `{"account_id":"alice.near","action":"decrypt",`+
		`"ciphertext_b64":"QUJD","group_id":"alice.near/private"}`, req.InputData)
	assert.Equal(t, uint32(60), req.ResourceLimits.MaxExecutionSeconds)
}

func TestPrepareDeterministic(t *testing.T) {
	preparer := newPreparer()

	first, err := preparer.Prepare(decryptCommand())
	require.Nil(t, err)
	second, err := preparer.Prepare(decryptCommand())
	require.Nil(t, err)

	assert.Equal(t, first, second)
}

func TestPrepareWireFormat(t *testing.T) {
	prepared := PreparedTransaction{
		Transaction: Transaction{
			ReceiverID: "outlayer.near",
			MethodName: "request_execution",
			Args:       "e30=",
			Deposit:    "1",
			Gas:        "2",
		},
		SubmitURL:    "https://wallet.near.org/sign",
		Instructions: "sign",
	}

	p, err := json.Marshal(prepared)

	assert.Nil(t, err)
	assert.Equal(t, `{"transaction":{"receiver_id":"outlayer.near",`+
		`"method_name":"request_execution","args":"e30=","deposit":"1","gas":"2"},`+
		`"submit_url":"https://wallet.near.org/sign","instructions":"sign"}`, string(p))
}

func TestNewPreparerRequiresBuilder(t *testing.T) {
	assert.Panics(t, func() { NewPreparer(nil, DefaultTemplate()) })
}
