// Package enclave implements the direct invocation path. Commands are
// sent to the attested execution service over HTTP and paid for with
// the payment key supplied by the caller.
package enclave

import (
	"bytes"
	"context"
	stderr "errors"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/Kampouse/fastkv-server/credential"
	"github.com/Kampouse/fastkv-server/errors"
	"github.com/Kampouse/fastkv-server/execution"
	"github.com/Kampouse/fastkv-server/log"
	"github.com/Kampouse/fastkv-server/metrics"
	pkgerrors "github.com/pkg/errors"
)

// replies larger than this are considered a broken upstream
const maxReplyBytes = 1 << 22

// HttpClient is the basic interface for the
// underlying http client used by the Client
type HttpClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Services are services required by the client
type Services struct {
	Logger log.Logger
}

// Props are the properties that define the behaviour
// of the client
type Props struct {
	// URL is the endpoint of the key manager program in the
	// attested execution service
	URL string

	// Timeout bounds a whole call, zero means no client side timeout
	// and the call is only bounded by the execution limits
	Timeout time.Duration

	// Builder creates the execution requests
	Builder *execution.Builder
}

// Deps are the required instantiated dependencies
// that a Client requires
type Deps struct {
	Logger  log.Logger
	Client  HttpClient
	Metrics *metrics.ServiceMetrics
}

// NewClient creates a new client using a standard http client
func NewClient(services *Services, props *Props) *Client {
	return NewClientWithDeps(&Deps{
		Logger: services.Logger,
		Client: &http.Client{Timeout: props.Timeout},
	}, props)
}

// NewClientWithDeps creates a new client using the external
// dependencies provided
func NewClientWithDeps(deps *Deps, props *Props) *Client {
	if deps.Logger == nil {
		panic("Logger must be set")
	}

	if deps.Client == nil {
		panic("Client must be set")
	}

	if props.Builder == nil {
		panic("Builder must be set")
	}

	m := deps.Metrics
	if m == nil {
		m = metrics.NewDefaultServiceMetrics("enclave")
	}

	return &Client{
		url:     props.URL,
		builder: props.Builder,
		client:  deps.Client,
		logger:  deps.Logger.ForClass("enclave", "Client"),
		metrics: m,
	}
}

// Client sends commands to the attested execution service
type Client struct {
	url     string
	builder *execution.Builder
	client  HttpClient
	logger  log.Logger
	metrics *metrics.ServiceMetrics
}

// Builder returns the builder of the execution requests
func (c *Client) Builder() *execution.Builder {
	return c.builder
}

// Invoke executes the command with the provided payment credential.
// It fails with ErrMissingCredential before any network activity if
// the credential is empty, with ErrServiceUnavailable if the service
// cannot be reached or its reply is not a JSON object and with
// ErrServiceRejected if the reply carries an error
func (c *Client) Invoke(ctx context.Context, paymentKey string, cmd execution.Command) (execution.Reply, error) {
	if len(paymentKey) == 0 {
		return execution.Reply{}, errors.New(errors.ErrMissingCredential, nil)
	}

	req, err := c.builder.Build(cmd)
	if err != nil {
		return execution.Reply{}, err
	}

	body, err := req.Marshal()
	if err != nil {
		return execution.Reply{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return execution.Reply{}, errors.New(errors.ErrInternalError, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(credential.HttpHeaderPaymentKey, paymentKey)

	c.logger.Debug(ctx, "sending command to key manager", log.MapFields{
		"call_type":  "InvokeAttempt",
		"action":     cmd.Action,
		"group_id":   cmd.GroupID,
		"account_id": cmd.AccountID,
	})

	reply, err := c.instrumentedRequest(ctx, string(cmd.Action), httpReq)
	if err != nil {
		c.logger.Debug(ctx, "key manager invocation failed", log.MapFields{
			"call_type":  "InvokeFailure",
			"action":     cmd.Action,
			"account_id": cmd.AccountID,
			"err":        err.Error(),
		})
		return execution.Reply{}, err
	}

	c.logger.Debug(ctx, "key manager invocation succeeded", log.MapFields{
		"call_type":  "InvokeSuccess",
		"action":     cmd.Action,
		"account_id": cmd.AccountID,
	})

	return reply, nil
}

func (c *Client) instrumentedRequest(ctx context.Context, action string, req *http.Request) (execution.Reply, error) {
	timer := c.metrics.RequestTimer(action)
	defer timer.ObserveDuration()

	reply, err := c.request(req)
	switch {
	case err == nil:
		c.metrics.RequestCounter(action, "success").Inc()
	case errors.Is(err, errors.ErrServiceRejected):
		c.metrics.RequestCounter(action, "fail", "rejected").Inc()
	default:
		c.metrics.RequestCounter(action, "fail", "unavailable").Inc()
	}

	return reply, err
}

func (c *Client) request(req *http.Request) (execution.Reply, error) {
	res, err := c.client.Do(req)
	if err != nil {
		return execution.Reply{}, errors.New(errors.ErrServiceUnavailable,
			pkgerrors.Wrap(err, "key manager request failed"))
	}

	defer func() { _ = res.Body.Close() }()

	p, err := ioutil.ReadAll(io.LimitReader(res.Body, maxReplyBytes))
	if err != nil {
		return execution.Reply{}, errors.New(errors.ErrServiceUnavailable,
			pkgerrors.Wrap(err, "failed to read key manager reply"))
	}

	reply, err := execution.ParseReply(p)
	if err != nil {
		return execution.Reply{}, errors.New(errors.ErrServiceUnavailable,
			pkgerrors.Wrapf(err, "invalid key manager reply with status %d", res.StatusCode))
	}

	if reason, ok := reply.Rejection(); ok {
		return execution.Reply{}, errors.New(errors.ErrServiceRejected, stderr.New(reason))
	}

	return reply, nil
}
