package backend

import (
	"context"

	"github.com/Kampouse/fastkv-server/account"
	"github.com/Kampouse/fastkv-server/backend/core"
	"github.com/Kampouse/fastkv-server/backend/enclave"
	"github.com/Kampouse/fastkv-server/backend/ledger"
	"github.com/Kampouse/fastkv-server/execution"
	"github.com/Kampouse/fastkv-server/log"
	"github.com/Kampouse/fastkv-server/tx"
)

type Services struct {
	Logger log.Logger
}

type Deps struct {
	Logger   log.Logger
	Invoker  core.Invoker
	Preparer *tx.Preparer
	Ledger   ledger.Ledger
}

// NewRequestManagerWithDeps creates the request manager on top of the
// provided collaborators
func NewRequestManagerWithDeps(ctx context.Context, deps Deps, config *Config) (*core.RequestManager, error) {
	return core.NewRequestManager(core.RequestManagerProperties{
		Invoker:  deps.Invoker,
		Preparer: deps.Preparer,
		Resolver: ledger.NewResolver(&ledger.ResolverServices{
			Logger: deps.Logger,
			Ledger: deps.Ledger,
		}, &ledger.ResolverProps{
			Signer: config.Ledger.Signer,
		}),
		Validator: account.NearValidator{},
		Logger:    deps.Logger,
	}), nil
}

// Backend is the request manager along with the clients it owns
type Backend struct {
	Request *core.RequestManager

	// Builder is shared by the direct and the deferred paths
	Builder  *execution.Builder
	Enclave  *enclave.Client
	Preparer *tx.Preparer
	Ledger   *ledger.Client
}

// Close releases the transports of the clients
func (b *Backend) Close() {
	b.Ledger.Close()
}

// NewBackend creates the request manager and the clients of the
// configured collaborators
func NewBackend(ctx context.Context, services Services, config *Config) (*Backend, error) {
	builder := execution.NewBuilder(config.Execution.Policy)
	invoker := NewEnclaveClient(services, config, builder)
	preparer := tx.NewPreparer(builder, config.Deferred.Template)

	ledgerClient, err := NewLedgerClient(ctx, services, config)
	if err != nil {
		return nil, err
	}

	request, err := NewRequestManagerWithDeps(ctx, Deps{
		Logger:   services.Logger,
		Invoker:  invoker,
		Preparer: preparer,
		Ledger:   ledgerClient,
	}, config)
	if err != nil {
		ledgerClient.Close()
		return nil, err
	}

	return &Backend{
		Request:  request,
		Builder:  builder,
		Enclave:  invoker,
		Preparer: preparer,
		Ledger:   ledgerClient,
	}, nil
}

// NewEnclaveClient creates the client of the attested execution
// service
func NewEnclaveClient(services Services, config *Config, builder *execution.Builder) *enclave.Client {
	return enclave.NewClient(&enclave.Services{
		Logger: services.Logger,
	}, &enclave.Props{
		URL:     config.Enclave.URL,
		Timeout: config.Enclave.Timeout,
		Builder: builder,
	})
}

// NewLedgerClient creates the client of the ledger JSON-RPC endpoint
func NewLedgerClient(ctx context.Context, services Services, config *Config) (*ledger.Client, error) {
	return ledger.DialContext(ctx, &ledger.Services{
		Logger: services.Logger,
	}, &ledger.Props{
		URL:     config.Ledger.URL,
		Timeout: config.Ledger.Timeout,
	})
}
