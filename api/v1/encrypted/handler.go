package encrypted

import (
	"context"
	stderr "errors"
	"fmt"

	backend "github.com/Kampouse/fastkv-server/backend/core"
	"github.com/Kampouse/fastkv-server/backend/ledger"
	"github.com/Kampouse/fastkv-server/credential"
	"github.com/Kampouse/fastkv-server/errors"
	"github.com/Kampouse/fastkv-server/log"
	"github.com/Kampouse/fastkv-server/rpc"
	"github.com/Kampouse/fastkv-server/tx"
)

// Client is the backend that executes the requests
type Client interface {
	Encrypt(context.Context, backend.EncryptRequest) (backend.EncryptResponse, error)
	Decrypt(context.Context, backend.DecryptRequest) (backend.DecryptResponse, error)
	BatchEncrypt(context.Context, backend.BatchEncryptRequest) (backend.BatchEncryptResponse, error)
	PrepareEncrypt(context.Context, backend.PrepareEncryptRequest) (tx.PreparedTransaction, error)
	PrepareDecrypt(context.Context, backend.PrepareDecryptRequest) (tx.PreparedTransaction, error)
	Result(context.Context, backend.ResultRequest) (ledger.TransactionResult, error)
}

type Services struct {
	Logger log.Logger
	Client Client
}

// EncryptedHandler implements the handlers for encrypted values
type EncryptedHandler struct {
	logger log.Logger
	client Client
}

// NewEncryptedHandler creates a new handler for encrypted values
func NewEncryptedHandler(services Services) EncryptedHandler {
	if services.Logger == nil {
		panic("Logger must be set")
	}

	if services.Client == nil {
		panic("Client must be set")
	}

	return EncryptedHandler{
		logger: services.Logger.ForClass("encrypted", "handler"),
		client: services.Client,
	}
}

func (h EncryptedHandler) fail(ctx context.Context, callType string, err error) error {
	fields := log.MapFields{"call_type": callType}
	if loggable, ok := err.(log.Loggable); ok {
		h.logger.Debug(ctx, "request failed", fields, loggable)
	} else {
		h.logger.Debug(ctx, "request failed", fields)
	}

	return err
}

// Encrypt encrypts a value through the key manager paid with the
// credential of the caller
func (h EncryptedHandler) Encrypt(ctx context.Context, v interface{}) (interface{}, error) {
	req := v.(*EncryptRequest)
	if req.Value == nil {
		return nil, h.fail(ctx, "EncryptFailure",
			errors.New(errors.ErrEmptyInput, stderr.New("value field has not been set")))
	}

	res, err := h.client.Encrypt(ctx, backend.EncryptRequest{
		Credential: credential.FromContext(ctx),
		AccountID:  req.AccountID,
		GroupID:    req.GroupID,
		Value:      []byte(*req.Value),
	})
	if err != nil {
		return nil, h.fail(ctx, "EncryptFailure", err)
	}

	return &EncryptResponse{
		EncryptedValue: res.EncryptedValue,
		KeyID:          res.KeyID,
		Attestation:    res.Attestation,
	}, nil
}

// Decrypt decrypts a value through the key manager paid with the
// credential of the caller
func (h EncryptedHandler) Decrypt(ctx context.Context, v interface{}) (interface{}, error) {
	req := v.(*DecryptRequest)

	res, err := h.client.Decrypt(ctx, backend.DecryptRequest{
		Credential: credential.FromContext(ctx),
		AccountID:  req.AccountID,
		GroupID:    req.GroupID,
		Ciphertext: req.Ciphertext,
	})
	if err != nil {
		return nil, h.fail(ctx, "DecryptFailure", err)
	}

	return &DecryptResponse{
		Plaintext:     res.Plaintext,
		PlaintextUTF8: res.PlaintextUTF8,
		KeyID:         res.KeyID,
	}, nil
}

// BatchEncrypt encrypts a list of values with a single call to the
// key manager
func (h EncryptedHandler) BatchEncrypt(ctx context.Context, v interface{}) (interface{}, error) {
	req := v.(*BatchEncryptRequest)

	items := make([]backend.BatchItem, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Value == nil {
			return nil, h.fail(ctx, "BatchEncryptFailure", errors.New(errors.ErrEmptyInput,
				fmt.Errorf("items[%d].value field has not been set", i)))
		}

		items = append(items, backend.BatchItem{Key: item.Key, Value: []byte(*item.Value)})
	}

	res, err := h.client.BatchEncrypt(ctx, backend.BatchEncryptRequest{
		Credential: credential.FromContext(ctx),
		AccountID:  req.AccountID,
		GroupID:    req.GroupID,
		Items:      items,
	})
	if err != nil {
		return nil, h.fail(ctx, "BatchEncryptFailure", err)
	}

	results := make([]BatchItemResult, 0, len(res.Items))
	for _, item := range res.Items {
		results = append(results, BatchItemResult{
			Key:            item.Key,
			EncryptedValue: item.EncryptedValue,
			Error:          item.Error,
		})
	}

	return &BatchEncryptResponse{KeyID: res.KeyID, Items: results}, nil
}

// PrepareEncrypt returns an unsigned transaction that encrypts the
// value once the caller signs and submits it
func (h EncryptedHandler) PrepareEncrypt(ctx context.Context, v interface{}) (interface{}, error) {
	req := v.(*EncryptRequest)
	if req.Value == nil {
		return nil, h.fail(ctx, "PrepareEncryptFailure",
			errors.New(errors.ErrEmptyInput, stderr.New("value field has not been set")))
	}

	res, err := h.client.PrepareEncrypt(ctx, backend.PrepareEncryptRequest{
		AccountID: req.AccountID,
		GroupID:   req.GroupID,
		Value:     []byte(*req.Value),
	})
	if err != nil {
		return nil, h.fail(ctx, "PrepareEncryptFailure", err)
	}

	return &res, nil
}

// PrepareDecrypt returns an unsigned transaction that decrypts the
// value once the caller signs and submits it
func (h EncryptedHandler) PrepareDecrypt(ctx context.Context, v interface{}) (interface{}, error) {
	req := v.(*DecryptRequest)

	res, err := h.client.PrepareDecrypt(ctx, backend.PrepareDecryptRequest{
		AccountID:  req.AccountID,
		GroupID:    req.GroupID,
		Ciphertext: req.Ciphertext,
	})
	if err != nil {
		return nil, h.fail(ctx, "PrepareDecryptFailure", err)
	}

	return &res, nil
}

// Result returns the outcome of a transaction. A transaction the
// ledger reports as failed is a successful response with success
// set to false
func (h EncryptedHandler) Result(ctx context.Context, v interface{}) (interface{}, error) {
	req := v.(*ResultRequest)

	res, err := h.client.Result(ctx, backend.ResultRequest{
		TxHash:   req.TxHash,
		SenderID: req.SenderID,
	})
	if err != nil {
		return nil, h.fail(ctx, "ResultFailure", err)
	}

	return &res, nil
}

// BindHandler binds the encrypted value handlers to the handler binder
func BindHandler(services Services, binder rpc.HandlerBinder) {
	handler := NewEncryptedHandler(services)

	binder.Bind("POST", "/v1/kv/encrypted/encrypt", rpc.HandlerFunc(handler.Encrypt),
		rpc.EntityFactoryFunc(func() interface{} { return &EncryptRequest{} }))
	binder.Bind("POST", "/v1/kv/encrypted/decrypt", rpc.HandlerFunc(handler.Decrypt),
		rpc.EntityFactoryFunc(func() interface{} { return &DecryptRequest{} }))
	binder.Bind("POST", "/v1/kv/encrypted/batch-encrypt", rpc.HandlerFunc(handler.BatchEncrypt),
		rpc.EntityFactoryFunc(func() interface{} { return &BatchEncryptRequest{} }))
	binder.Bind("POST", "/v1/kv/encrypted/prepare-encrypt", rpc.HandlerFunc(handler.PrepareEncrypt),
		rpc.EntityFactoryFunc(func() interface{} { return &EncryptRequest{} }))
	binder.Bind("POST", "/v1/kv/encrypted/prepare-decrypt", rpc.HandlerFunc(handler.PrepareDecrypt),
		rpc.EntityFactoryFunc(func() interface{} { return &DecryptRequest{} }))
	binder.Bind("GET", "/v1/kv/encrypted/result", rpc.HandlerFunc(handler.Result),
		rpc.EntityFactoryFunc(func() interface{} { return &ResultRequest{} }))
}
