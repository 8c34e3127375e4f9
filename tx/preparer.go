// Package tx prepares the unsigned ledger transactions of the deferred
// invocation path. The caller signs and submits the transaction with
// its own wallet, the gateway never holds a signing key and never
// tracks a prepared transaction after returning it.
package tx

import (
	"encoding/base64"

	"github.com/Kampouse/fastkv-server/execution"
)

// Template holds the fixed parts of every prepared transaction
type Template struct {
	// Contract is the account of the execution service contract
	Contract string

	// Method is the contract method that requests an execution
	Method string

	// Deposit attached to the call in yoctoNEAR
	Deposit string

	// Gas budget of the call
	Gas string

	// SubmitURL is a hint of where the caller can sign and submit
	// the transaction
	SubmitURL string

	// Instructions are human readable signing instructions
	Instructions string
}

// Transaction is an unsigned function call
type Transaction struct {
	ReceiverID string `json:"receiver_id"`
	MethodName string `json:"method_name"`

	// Args is the base64 encoding of the serialized execution request
	Args    string `json:"args"`
	Deposit string `json:"deposit"`
	Gas     string `json:"gas"`
}

// PreparedTransaction is the transaction handed to the caller along
// with the information needed to sign it
type PreparedTransaction struct {
	Transaction  Transaction `json:"transaction"`
	SubmitURL    string      `json:"submit_url"`
	Instructions string      `json:"instructions"`
}

// Preparer builds prepared transactions. It shares the Builder of the
// direct path so a command produces the same execution request on
// both paths
type Preparer struct {
	builder  *execution.Builder
	template Template
}

// NewPreparer creates a new Preparer
func NewPreparer(builder *execution.Builder, template Template) *Preparer {
	if builder == nil {
		panic("builder must be set")
	}

	return &Preparer{builder: builder, template: template}
}

// Template returns the template used by the preparer
func (p *Preparer) Template() Template {
	return p.template
}

// Builder returns the builder of the execution requests
func (p *Preparer) Builder() *execution.Builder {
	return p.builder
}

// Prepare builds the unsigned transaction that requests the execution
// of cmd. It performs no I/O
func (p *Preparer) Prepare(cmd execution.Command) (PreparedTransaction, error) {
	req, err := p.builder.Build(cmd)
	if err != nil {
		return PreparedTransaction{}, err
	}

	args, err := req.Marshal()
	if err != nil {
		return PreparedTransaction{}, err
	}

	return PreparedTransaction{
		Transaction: Transaction{
			ReceiverID: p.template.Contract,
			MethodName: p.template.Method,
			Args:       base64.StdEncoding.EncodeToString(args),
			Deposit:    p.template.Deposit,
			Gas:        p.template.Gas,
		},
		SubmitURL:    p.template.SubmitURL,
		Instructions: p.template.Instructions,
	}, nil
}
