// Package ledger resolves the outcome of the transactions submitted on
// the deferred invocation path. It looks the transaction up through
// the ledger JSON-RPC endpoint and reconstructs the program output
// from the execution logs of the transaction.
package ledger

import (
	"context"
	"encoding/json"
	stderr "errors"
	"net/http"
	"time"

	"github.com/Kampouse/fastkv-server/errors"
	"github.com/Kampouse/fastkv-server/log"
	"github.com/Kampouse/fastkv-server/metrics"
	"github.com/ethereum/go-ethereum/rpc"
	pkgerrors "github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const methodTx = "tx"

// RpcClient is the JSON-RPC transport used by the Client
type RpcClient interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Close()
}

// TxError is returned when the ledger itself reports an error for
// the transaction lookup. It is an expected outcome, for instance
// when the transaction is unknown or failed, not a transport failure
type TxError struct {
	// Text is the serialized error object reported by the ledger
	Text string
}

func (e TxError) Error() string {
	return e.Text
}

type Services struct {
	Logger log.Logger
}

type Props struct {
	// URL of the ledger JSON-RPC endpoint
	URL string

	// Timeout of a single lookup
	Timeout time.Duration
}

type Deps struct {
	Logger  log.Logger
	Client  RpcClient
	Metrics *metrics.ServiceMetrics
}

// DialContext creates a new Client connected to the JSON-RPC endpoint
// in props. Dialing an http endpoint performs no I/O
func DialContext(ctx context.Context, services *Services, props *Props) (*Client, error) {
	client, err := rpc.DialOptions(ctx, props.URL,
		rpc.WithHTTPClient(&http.Client{Timeout: props.Timeout}))
	if err != nil {
		return nil, errors.New(errors.ErrLedgerUnavailable,
			pkgerrors.Wrap(err, "failed to dial ledger endpoint"))
	}

	return NewClientWithDeps(&Deps{
		Logger: services.Logger,
		Client: client,
	}), nil
}

// NewClientWithDeps creates a new client using the external
// dependencies provided
func NewClientWithDeps(deps *Deps) *Client {
	if deps.Logger == nil {
		panic("Logger must be set")
	}

	if deps.Client == nil {
		panic("Client must be set")
	}

	m := deps.Metrics
	if m == nil {
		m = metrics.NewDefaultServiceMetrics("ledger")
	}

	return &Client{
		client:  deps.Client,
		logger:  deps.Logger.ForClass("ledger", "Client"),
		metrics: m,
	}
}

// Client looks up transactions in the ledger
type Client struct {
	client  RpcClient
	logger  log.Logger
	metrics *metrics.ServiceMetrics
}

// Close releases the transport of the client
func (c *Client) Close() {
	c.client.Close()
}

// Transaction returns the outcome of the transaction with the
// provided hash as returned by the ledger. A lookup for which the
// ledger reports an error fails with TxError, transport failures
// fail with ErrLedgerUnavailable and undecodable responses with
// ErrInvalidLedgerResponse
func (c *Client) Transaction(ctx context.Context, txHash, signer string) (json.RawMessage, error) {
	timer := c.metrics.RequestTimer(methodTx)
	defer timer.ObserveDuration()

	var raw json.RawMessage
	err := c.client.CallContext(ctx, &raw, methodTx, txHash, signer)
	if err == nil {
		c.metrics.RequestCounter(methodTx, "success").Inc()
		return raw, nil
	}

	err = classify(err)
	switch {
	case errors.Is(err, errors.ErrLedgerUnavailable):
		c.metrics.RequestCounter(methodTx, "fail", "unavailable").Inc()
	case errors.Is(err, errors.ErrInvalidLedgerResponse):
		c.metrics.RequestCounter(methodTx, "fail", "invalid").Inc()
	default:
		c.metrics.RequestCounter(methodTx, "fail", "ledger").Inc()
	}

	c.logger.Debug(ctx, "transaction lookup failed", log.MapFields{
		"call_type": "TransactionLookupFailure",
		"tx_hash":   txHash,
		"err":       err.Error(),
	})

	return nil, err
}

func classify(err error) error {
	var rpcErr rpc.Error
	if stderr.As(err, &rpcErr) {
		return TxError{Text: serializeRpcError(rpcErr)}
	}

	// the ledger reports some lookup errors with a non 2xx status, the
	// transport fails those before decoding the error object
	var httpErr rpc.HTTPError
	if stderr.As(err, &httpErr) {
		if obj := gjson.GetBytes(httpErr.Body, "error"); obj.IsObject() {
			return TxError{Text: obj.Raw}
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if stderr.As(err, &syntaxErr) || stderr.As(err, &typeErr) || stderr.Is(err, rpc.ErrNoResult) {
		return errors.New(errors.ErrInvalidLedgerResponse,
			pkgerrors.Wrap(err, "failed to decode ledger response"))
	}

	return errors.New(errors.ErrLedgerUnavailable,
		pkgerrors.Wrap(err, "ledger request failed"))
}

func serializeRpcError(err rpc.Error) string {
	fields := map[string]interface{}{
		"code":    err.ErrorCode(),
		"message": err.Error(),
	}

	if dataErr, ok := err.(rpc.DataError); ok && dataErr.ErrorData() != nil {
		fields["data"] = dataErr.ErrorData()
	}

	p, jerr := json.Marshal(fields)
	if jerr != nil {
		return err.Error()
	}

	return string(p)
}
