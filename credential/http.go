// Package credential carries the payment key of a caller from the
// request headers to the backend. The key is forwarded verbatim and
// is never inspected or logged.
package credential

import (
	"context"
	"net/http"
	"strings"

	"github.com/Kampouse/fastkv-server/log"
	"github.com/Kampouse/fastkv-server/rpc"
)

// HttpHeaderPaymentKey is the header that holds the payment key
const HttpHeaderPaymentKey = "X-Payment-Key"

type contextKey struct{}

// WithCredential returns a context that carries the credential
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, contextKey{}, credential)
}

// FromContext returns the credential carried by the context or an
// empty string if there is none
func FromContext(ctx context.Context) string {
	credential, ok := ctx.Value(contextKey{}).(string)
	if !ok {
		return ""
	}

	return credential
}

// HttpMiddlewareCredential copies the payment key of a request into
// its context. Requests without a key are passed on, the operations
// that need one reject them
type HttpMiddlewareCredential struct {
	logger log.Logger
	next   rpc.HttpMiddleware
}

func NewHttpMiddlewareCredential(logger log.Logger, next rpc.HttpMiddleware) *HttpMiddlewareCredential {
	if logger == nil {
		panic("log must be set")
	}

	if next == nil {
		panic("next must be set")
	}

	return &HttpMiddlewareCredential{
		logger: logger.ForClass("credential", "HttpMiddlewareCredential"),
		next:   next,
	}
}

func (m *HttpMiddlewareCredential) ServeHTTP(req *http.Request) (interface{}, error) {
	key := strings.TrimSpace(req.Header.Get(HttpHeaderPaymentKey))
	if len(key) == 0 {
		m.logger.Debug(req.Context(), "request without payment key", log.MapFields{
			"call_type": "CredentialMissing",
			"path":      req.URL.EscapedPath(),
		})
		return m.next.ServeHTTP(req)
	}

	return m.next.ServeHTTP(req.WithContext(WithCredential(req.Context(), key)))
}
