package gateway

import (
	"context"
	"os"

	"github.com/Kampouse/fastkv-server/api/v1/encrypted"
	"github.com/Kampouse/fastkv-server/api/v1/health"
	"github.com/Kampouse/fastkv-server/api/v1/version"
	"github.com/Kampouse/fastkv-server/backend"
	backendcore "github.com/Kampouse/fastkv-server/backend/core"
	"github.com/Kampouse/fastkv-server/backend/ledger"
	"github.com/Kampouse/fastkv-server/credential"
	"github.com/Kampouse/fastkv-server/log"
	"github.com/Kampouse/fastkv-server/metrics"
	"github.com/Kampouse/fastkv-server/rpc"
	"github.com/Kampouse/fastkv-server/storage"
)

// RootLogger is the logger of the process. It is replaced with the
// configured one by InitLogger
var RootLogger = log.New(&log.Config{Level: "info", Format: "json"}, os.Stderr)

// InitLogger sets up the RootLogger from the configuration
func InitLogger(config *Config) {
	RootLogger = log.New(&config.LoggingConfig, os.Stderr)
}

// ServiceGroup holds the services the routers are built on
type ServiceGroup struct {
	Request *backendcore.RequestManager

	// Ledger is the client of the ledger endpoint, owned by the group
	Ledger *ledger.Client

	// Storage builds the prefix scans over the key value store
	Storage *storage.Builder
}

// NewServiceGroup creates the services of the gateway with the clients
// of the configured collaborators
func NewServiceGroup(ctx context.Context, config *Config) (*ServiceGroup, error) {
	b, err := backend.NewBackend(ctx, backend.Services{
		Logger: RootLogger,
	}, &config.BackendConfig)
	if err != nil {
		return nil, err
	}

	return &ServiceGroup{
		Request: b.Request,
		Ledger:  b.Ledger,
		Storage: config.StorageConfig.NewBuilder(),
	}, nil
}

// Close releases the clients held by the group
func (g *ServiceGroup) Close() {
	g.Ledger.Close()
}

// RouterProps are the properties shared by the routes of a router
type RouterProps struct {
	// MaxBodyBytes is the largest request body accepted
	MaxBodyBytes int64

	Cors CorsConfig

	// Metrics of the routes, the default registry is used when unset
	Metrics *metrics.ServiceMetrics
}

// NewRouterProps returns the router properties from the configuration
func NewRouterProps(config *Config) RouterProps {
	return RouterProps{
		MaxBodyBytes: config.BindPublicConfig.MaxBodyBytes,
		Cors:         config.CorsConfig,
	}
}

// NewPublicRouter creates the router of the public API
func NewPublicRouter(props RouterProps, group *ServiceGroup) *rpc.HttpRouter {
	binder := rpc.NewHttpBinder(rpc.HttpBinderProperties{
		Encoder: rpc.JsonEncoder{},
		Logger:  RootLogger,
		Metrics: props.Metrics,
		HandlerFactory: rpc.HttpHandlerFactoryFunc(func(factory rpc.EntityFactory, handler rpc.Handler) rpc.HttpMiddleware {
			jsonHandler := rpc.NewHttpJsonHandler(rpc.HttpJsonHandlerProperties{
				Limit:   props.MaxBodyBytes,
				Handler: handler,
				Logger:  RootLogger,
				Factory: factory,
			})

			return credential.NewHttpMiddlewareCredential(RootLogger, jsonHandler)
		}),
	})

	binder.AddPreProcessor(rpc.NewHttpCorsPreProcessor(rpc.HttpCorsPreProcessorProps{
		Enabled:        props.Cors.Enabled,
		AllowedOrigins: props.Cors.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", credential.HttpHeaderPaymentKey, rpc.HttpHeaderTraceID},
		ExposedHeaders: []string{rpc.HttpHeaderTraceID},
		MaxAge:         props.Cors.MaxAge,
	}))

	encrypted.BindHandler(encrypted.Services{
		Logger: RootLogger,
		Client: group.Request,
	}, binder)
	health.BindHandler(health.Services{}, binder)
	version.BindHandler(&version.Deps{}, binder)

	return binder.Build()
}
