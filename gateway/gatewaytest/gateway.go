// Package gatewaytest runs the gateway in process against stubbed
// collaborators
package gatewaytest

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http/httptest"

	"github.com/Kampouse/fastkv-server/config"
	"github.com/Kampouse/fastkv-server/gateway"
	"github.com/Kampouse/fastkv-server/log"
	"github.com/Kampouse/fastkv-server/metrics"
	"github.com/Kampouse/fastkv-server/rpc"
	"github.com/prometheus/client_golang/prometheus"
)

// Gateway is a gateway wired to stubbed collaborators
type Gateway struct {
	Config  *gateway.Config
	Group   *gateway.ServiceGroup
	Router  *rpc.HttpRouter
	Enclave *EnclaveStub
	Ledger  *LedgerStub

	// Metrics of the router, registered in their own registry
	Metrics *metrics.ServiceMetrics
}

// NewGateway starts the stubs and builds the gateway on top of them.
// args are extra command line arguments for the configuration
func NewGateway(ctx context.Context, args ...string) (*Gateway, error) {
	gateway.RootLogger = log.NewLogrus(log.LogrusLoggerProperties{Output: ioutil.Discard})

	enclave := NewEnclaveStub()
	ledger := NewLedgerStub()

	g, err := newGateway(ctx, enclave, ledger, args)
	if err != nil {
		enclave.Close()
		ledger.Close()
		return nil, err
	}

	return g, nil
}

func newGateway(ctx context.Context, enclave *EnclaveStub, ledger *LedgerStub, args []string) (*Gateway, error) {
	conf := &gateway.Config{}
	parser, err := config.Generate(conf)
	if err != nil {
		return nil, err
	}

	args = append([]string{
		"--enclave.url=" + enclave.Server.URL,
		"--ledger.url=" + ledger.Server.URL,
	}, args...)
	if err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	group, err := gateway.NewServiceGroup(ctx, conf)
	if err != nil {
		return nil, err
	}

	props := gateway.NewRouterProps(conf)
	props.Metrics = metrics.NewServiceMetrics(prometheus.NewRegistry(), "http")

	return &Gateway{
		Config:  conf,
		Group:   group,
		Router:  gateway.NewPublicRouter(props, group),
		Enclave: enclave,
		Ledger:  ledger,
		Metrics: props.Metrics,
	}, nil
}

// Close releases the clients of the gateway and stops the stubs
func (g *Gateway) Close() {
	g.Group.Close()
	g.Enclave.Close()
	g.Ledger.Close()
}

// Request sends a request to the router. A non nil body is serialized
// to JSON
func (g *Gateway) Request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		p, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		payload = p
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	g.Router.ServeHTTP(recorder, req)
	return recorder
}
