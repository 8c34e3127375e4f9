package core

import (
	"context"
	"encoding/base64"
	stderr "errors"
	"fmt"

	"github.com/Kampouse/fastkv-server/account"
	"github.com/Kampouse/fastkv-server/backend/ledger"
	"github.com/Kampouse/fastkv-server/envelope"
	"github.com/Kampouse/fastkv-server/errors"
	"github.com/Kampouse/fastkv-server/execution"
	"github.com/Kampouse/fastkv-server/log"
	"github.com/Kampouse/fastkv-server/tx"
)

// Invoker executes commands in the key manager on the caller's
// behalf, paid with the caller's credential
type Invoker interface {
	Invoke(ctx context.Context, credential string, cmd execution.Command) (execution.Reply, error)
}

// Resolver reconstructs the outcome of a submitted transaction
type Resolver interface {
	Resolve(ctx context.Context, txHash, signer string) (ledger.TransactionResult, error)
}

// RequestManager handles the client requests. Requests on the direct
// path are executed synchronously through the Invoker, requests on
// the deferred path return a transaction that the caller submits and
// later resolves through Result.
type RequestManager struct {
	invoker   Invoker
	preparer  *tx.Preparer
	resolver  Resolver
	validator account.Validator
	logger    log.Logger
}

type RequestManagerProperties struct {
	Invoker   Invoker
	Preparer  *tx.Preparer
	Resolver  Resolver
	Validator account.Validator
	Logger    log.Logger
}

// NewRequestManager creates a new instance of a request manager
func NewRequestManager(properties RequestManagerProperties) *RequestManager {
	if properties.Invoker == nil {
		panic("Invoker must be set")
	}

	if properties.Preparer == nil {
		panic("Preparer must be set")
	}

	if properties.Resolver == nil {
		panic("Resolver must be set")
	}

	if properties.Logger == nil {
		panic("Logger must be set")
	}

	validator := properties.Validator
	if validator == nil {
		validator = account.NearValidator{}
	}

	return &RequestManager{
		invoker:   properties.Invoker,
		preparer:  properties.Preparer,
		resolver:  properties.Resolver,
		validator: validator,
		logger:    properties.Logger.ForClass("backend/core", "RequestManager"),
	}
}

// Encrypt encrypts the value with the key of the group and returns
// its descriptor
func (m *RequestManager) Encrypt(ctx context.Context, req EncryptRequest) (EncryptResponse, error) {
	if err := m.validator.Validate("account_id", req.AccountID); err != nil {
		return EncryptResponse{}, err
	}

	reply, err := m.invoker.Invoke(ctx, req.Credential, execution.Command{
		Action:    execution.ActionEncrypt,
		GroupID:   groupID(req.AccountID, req.GroupID),
		AccountID: req.AccountID,
		Fields: map[string]interface{}{
			"plaintext_b64": base64.StdEncoding.EncodeToString(req.Value),
		},
	})
	if err != nil {
		return EncryptResponse{}, err
	}

	output := reply.Encrypt()
	if output.CiphertextB64 == nil {
		return EncryptResponse{}, errors.New(errors.ErrInvalidServiceResponse,
			stderr.New("reply has no ciphertext_b64"))
	}

	keyID := m.keyID(ctx, execution.ActionEncrypt, output.KeyID)
	return EncryptResponse{
		EncryptedValue: envelope.Wrap(keyID, *output.CiphertextB64),
		KeyID:          keyID,
		Attestation:    output.Attestation,
	}, nil
}

// Decrypt decrypts a value previously returned by Encrypt. Descriptors
// with the descriptor prefix that are malformed are rejected before
// calling the key manager
func (m *RequestManager) Decrypt(ctx context.Context, req DecryptRequest) (DecryptResponse, error) {
	if err := m.validator.Validate("account_id", req.AccountID); err != nil {
		return DecryptResponse{}, err
	}

	if len(req.Ciphertext) == 0 {
		return DecryptResponse{}, errors.New(errors.ErrEmptyInput,
			stderr.New("ciphertext cannot be empty"))
	}

	ciphertext, err := envelope.Decode(req.Ciphertext)
	if err != nil {
		return DecryptResponse{}, err
	}

	reply, err := m.invoker.Invoke(ctx, req.Credential, execution.Command{
		Action:    execution.ActionDecrypt,
		GroupID:   groupID(req.AccountID, req.GroupID),
		AccountID: req.AccountID,
		Fields:    map[string]interface{}{"ciphertext_b64": ciphertext},
	})
	if err != nil {
		return DecryptResponse{}, err
	}

	output := reply.Decrypt()
	res := DecryptResponse{KeyID: m.keyID(ctx, execution.ActionDecrypt, output.KeyID)}

	switch {
	case output.PlaintextB64 != nil:
		res.Plaintext, res.PlaintextUTF8 = execution.DecodePlaintext(*output.PlaintextB64)
		if output.PlaintextUTF8 != nil {
			res.PlaintextUTF8 = output.PlaintextUTF8
		}
	case output.PlaintextUTF8 != nil:
		res.Plaintext = *output.PlaintextUTF8
		res.PlaintextUTF8 = output.PlaintextUTF8
	default:
		return DecryptResponse{}, errors.New(errors.ErrInvalidServiceResponse,
			stderr.New("reply has no plaintext_b64"))
	}

	return res, nil
}

// BatchEncrypt encrypts all the items with the key of the group in a
// single call. A failure of an item is reported in that item and does
// not fail the batch
func (m *RequestManager) BatchEncrypt(ctx context.Context, req BatchEncryptRequest) (BatchEncryptResponse, error) {
	if err := m.validator.Validate("account_id", req.AccountID); err != nil {
		return BatchEncryptResponse{}, err
	}

	if len(req.Items) == 0 || len(req.Items) > MaxBatchItems {
		return BatchEncryptResponse{}, errors.New(errors.ErrBatchLimit,
			fmt.Errorf("items must contain between 1 and %d elements", MaxBatchItems))
	}

	items := make([]map[string]string, 0, len(req.Items))
	for i, item := range req.Items {
		if len(item.Key) == 0 {
			return BatchEncryptResponse{}, errors.New(errors.ErrEmptyInput,
				fmt.Errorf("items[%d].key cannot be empty", i))
		}

		items = append(items, map[string]string{
			"key":           item.Key,
			"plaintext_b64": base64.StdEncoding.EncodeToString(item.Value),
		})
	}

	reply, err := m.invoker.Invoke(ctx, req.Credential, execution.Command{
		Action:    execution.ActionBatchEncrypt,
		GroupID:   groupID(req.AccountID, req.GroupID),
		AccountID: req.AccountID,
		Fields:    map[string]interface{}{"items": items},
	})
	if err != nil {
		return BatchEncryptResponse{}, err
	}

	output := reply.Batch()
	keyID := m.keyID(ctx, execution.ActionBatchEncrypt, output.KeyID)
	res := BatchEncryptResponse{
		KeyID: keyID,
		Items: make([]BatchItemResult, 0, len(output.Items)),
	}

	for _, item := range output.Items {
		result := BatchItemResult{Key: deref(item.Key), Error: item.Error}

		switch {
		case item.Error != nil:
		case item.CiphertextB64 != nil:
			result.EncryptedValue = envelope.Wrap(keyID, *item.CiphertextB64)
		default:
			reason := "key manager returned no ciphertext for the item"
			result.Error = &reason
		}

		res.Items = append(res.Items, result)
	}

	return res, nil
}

// PrepareEncrypt returns the transaction that encrypts the value on
// the deferred path
func (m *RequestManager) PrepareEncrypt(ctx context.Context, req PrepareEncryptRequest) (tx.PreparedTransaction, error) {
	if err := m.validator.Validate("account_id", req.AccountID); err != nil {
		return tx.PreparedTransaction{}, err
	}

	return m.preparer.Prepare(execution.Command{
		Action:    execution.ActionEncrypt,
		GroupID:   groupID(req.AccountID, req.GroupID),
		AccountID: req.AccountID,
		Fields: map[string]interface{}{
			"plaintext_b64": base64.StdEncoding.EncodeToString(req.Value),
		},
	})
}

// PrepareDecrypt returns the transaction that decrypts the value on
// the deferred path. Malformed descriptors are embedded as they are
func (m *RequestManager) PrepareDecrypt(ctx context.Context, req PrepareDecryptRequest) (tx.PreparedTransaction, error) {
	if err := m.validator.Validate("account_id", req.AccountID); err != nil {
		return tx.PreparedTransaction{}, err
	}

	if len(req.Ciphertext) == 0 {
		return tx.PreparedTransaction{}, errors.New(errors.ErrEmptyInput,
			stderr.New("ciphertext cannot be empty"))
	}

	return m.preparer.Prepare(execution.Command{
		Action:    execution.ActionDecrypt,
		GroupID:   groupID(req.AccountID, req.GroupID),
		AccountID: req.AccountID,
		Fields: map[string]interface{}{
			"ciphertext_b64": envelope.Normalize(req.Ciphertext),
		},
	})
}

// Result returns the outcome of a transaction submitted by the caller
func (m *RequestManager) Result(ctx context.Context, req ResultRequest) (ledger.TransactionResult, error) {
	if len(req.TxHash) == 0 {
		return ledger.TransactionResult{}, errors.New(errors.ErrEmptyInput,
			stderr.New("tx_hash cannot be empty"))
	}

	if len(req.SenderID) > 0 {
		if err := m.validator.Validate("sender_id", req.SenderID); err != nil {
			return ledger.TransactionResult{}, err
		}
	}

	return m.resolver.Resolve(ctx, req.TxHash, req.SenderID)
}

// keyID returns the key id of a reply. A reply without a key id is
// accepted with an empty key id
func (m *RequestManager) keyID(ctx context.Context, action execution.Action, keyID *string) string {
	if keyID == nil {
		m.logger.Warn(ctx, "key manager reply has no key id", log.MapFields{
			"call_type": "MissingKeyID",
			"action":    action,
		})
		return ""
	}

	return *keyID
}

func groupID(accountID, groupID string) string {
	if len(groupID) == 0 {
		return accountID + "/private"
	}

	return groupID
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
