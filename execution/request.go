// Package execution builds the requests sent to the attested execution
// service. The same Builder serves the direct path, where the request
// is the HTTP body, and the deferred path, where it becomes the
// arguments of a ledger transaction, so both paths always agree on
// the serialized form.
package execution

import (
	"encoding/json"

	"github.com/Kampouse/fastkv-server/errors"
)

// Action is the command the key manager program executes
type Action string

const (
	ActionEncrypt      Action = "encrypt"
	ActionDecrypt      Action = "decrypt"
	ActionBatchEncrypt Action = "batch_encrypt"
)

// ResponseFormatJSON asks the service to return the program output
// as a JSON object
const ResponseFormatJSON = "Json"

// Request is the wire form of an execution request
type Request struct {
	Source         Source         `json:"source"`
	InputData      string         `json:"input_data"`
	ResourceLimits ResourceLimits `json:"resource_limits"`
	ResponseFormat string         `json:"response_format"`
}

// Source references the program to run by URL and content hash
type Source struct {
	WasmURL WasmURL `json:"WasmUrl"`
}

type WasmURL struct {
	URL         string `json:"url"`
	Hash        string `json:"hash"`
	BuildTarget string `json:"build_target"`
}

type ResourceLimits struct {
	MaxInstructions     uint64 `json:"max_instructions"`
	MaxMemoryMB         uint32 `json:"max_memory_mb"`
	MaxExecutionSeconds uint32 `json:"max_execution_seconds"`
}

// Marshal serializes the request. Both invocation paths use it so
// that they send identical bytes for identical commands
func (r Request) Marshal() ([]byte, error) {
	p, err := json.Marshal(r)
	if err != nil {
		return nil, errors.New(errors.ErrSerializeRequest, err)
	}

	return p, nil
}

// Command is the input of the key manager program
type Command struct {
	Action    Action
	GroupID   string
	AccountID string

	// Fields holds the action specific payload, such as plaintext_b64,
	// ciphertext_b64 or items
	Fields map[string]interface{}
}

// Builder wraps commands with the program reference and resource
// limits of a Policy
type Builder struct {
	policy Policy
}

// NewBuilder creates a builder for the provided policy
func NewBuilder(policy Policy) *Builder {
	return &Builder{policy: policy}
}

// Policy returns the policy of the builder
func (b *Builder) Policy() Policy {
	return b.policy
}

// Build creates the execution request for the command. The command is
// serialized as a single JSON object with its keys sorted, so the
// result only depends on the command. The action, group_id and
// account_id keys always come from the command and cannot be
// overridden by Fields
func (b *Builder) Build(cmd Command) (Request, error) {
	input := make(map[string]interface{}, len(cmd.Fields)+3)
	for key, value := range cmd.Fields {
		input[key] = value
	}

	input["action"] = cmd.Action
	input["group_id"] = cmd.GroupID
	input["account_id"] = cmd.AccountID

	p, err := json.Marshal(input)
	if err != nil {
		return Request{}, errors.New(errors.ErrSerializeRequest, err)
	}

	return Request{
		Source: Source{
			WasmURL: WasmURL{
				URL:         b.policy.Program.URL,
				Hash:        b.policy.Program.Hash,
				BuildTarget: b.policy.Program.BuildTarget,
			},
		},
		InputData: string(p),
		ResourceLimits: ResourceLimits{
			MaxInstructions:     b.policy.Limits.MaxInstructions,
			MaxMemoryMB:         b.policy.Limits.MaxMemoryMB,
			MaxExecutionSeconds: b.policy.Limits.MaxExecutionSeconds,
		},
		ResponseFormat: ResponseFormatJSON,
	}, nil
}
