package rpc

import (
	"bytes"
	"context"
	stderr "errors"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Kampouse/fastkv-server/errors"
	"github.com/Kampouse/fastkv-server/log"
	"github.com/Kampouse/fastkv-server/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

var logger = log.NewLogrus(log.LogrusLoggerProperties{
	Level:  logrus.DebugLevel,
	Output: ioutil.Discard,
})

func mapEntityFactory() EntityFactory {
	return EntityFactoryFunc(func() interface{} { m := make(map[string]string); return &m })
}

func simpleHandlerFactory(factory EntityFactory, handler Handler) HttpMiddleware {
	return HttpMiddlewareRelay{handler: handler}
}

type HandlerEcho struct{}

func (m HandlerEcho) Handle(ctx context.Context, v interface{}) (interface{}, error) {
	return v, nil
}

type HttpMiddlewareRelay struct {
	handler Handler
}

func (m HttpMiddlewareRelay) ServeHTTP(req *http.Request) (interface{}, error) {
	return m.handler.Handle(req.Context(), nil)
}

type HttpMiddlewareOK struct {
	body interface{}
}

func (m HttpMiddlewareOK) ServeHTTP(req *http.Request) (interface{}, error) {
	return m.body, nil
}

type HttpMiddlewareFail struct {
	err error
}

func (m HttpMiddlewareFail) ServeHTTP(req *http.Request) (interface{}, error) {
	return nil, m.err
}

type HttpMiddlewarePanic struct{}

func (m HttpMiddlewarePanic) ServeHTTP(req *http.Request) (interface{}, error) {
	panic("error")
}

type queryEntity struct {
	Hash string
}

func (e *queryEntity) DecodeQuery(values url.Values) error {
	e.Hash = values.Get("tx_hash")
	if e.Hash == "" {
		return stderr.New("tx_hash is required")
	}

	return nil
}

func newTestMetrics() *metrics.ServiceMetrics {
	return metrics.NewServiceMetrics(prometheus.NewRegistry(), "http")
}

func setupRouter() *HttpRouter {
	route := func(path string, handlers MethodHandlers) *HttpRoute {
		return NewHttpRoute(HttpRouteProps{
			Path:     path,
			Logger:   logger,
			Encoder:  JsonEncoder{},
			Handlers: handlers,
			Metrics:  newTestMetrics(),
		})
	}

	return &HttpRouter{
		encoder: JsonEncoder{},
		mux: map[string]*HttpRoute{
			"/path": route("/path", MethodHandlers{
				"GET": HttpMiddlewareOK{body: map[string]string{"result": "ok"}},
				"PUT": HttpMiddlewareOK{body: nil},
			}),
			"/panic": route("/panic", MethodHandlers{
				"GET": HttpMiddlewarePanic{},
			}),
			"/rejected": route("/rejected", MethodHandlers{
				"POST": HttpMiddlewareFail{err: errors.New(errors.ErrServiceRejected, stderr.New("group not allowed"))},
			}),
			"/unavailable": route("/unavailable", MethodHandlers{
				"POST": HttpMiddlewareFail{err: errors.New(errors.ErrServiceUnavailable, stderr.New("dial tcp 10.0.0.1:443"))},
			}),
			"/unauthorized": route("/unauthorized", MethodHandlers{
				"POST": HttpMiddlewareFail{err: errors.New(errors.ErrMissingCredential, nil)},
			}),
		},
		logger: logger,
	}
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestHttpRouterServeHTTPNoRoute(t *testing.T) {
	recorder := serve(setupRouter(), "GET", "/unknown")

	s, err := ioutil.ReadAll(recorder.Body)

	assert.Nil(t, err)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "", string(s))
}

func TestHttpRouterServeHTTPNoMethod(t *testing.T) {
	recorder := serve(setupRouter(), "POST", "/path")

	s, err := ioutil.ReadAll(recorder.Body)

	assert.Nil(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
	assert.Equal(t, "", string(s))
}

func TestHttpRouterServeHTTPOKNoBody(t *testing.T) {
	recorder := serve(setupRouter(), "PUT", "/path")

	s, err := ioutil.ReadAll(recorder.Body)

	assert.Nil(t, err)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "", string(s))
}

func TestHttpRouterServeHTTPOKWithBody(t *testing.T) {
	recorder := serve(setupRouter(), "GET", "/path")

	s, err := ioutil.ReadAll(recorder.Body)

	assert.Nil(t, err)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.Equal(t, "{\"result\":\"ok\"}\n", string(s))
}

func TestHttpRouterServeHTTPPanic(t *testing.T) {
	recorder := serve(setupRouter(), "GET", "/panic")

	s, err := ioutil.ReadAll(recorder.Body)

	assert.Nil(t, err)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "{\"errorCode\":1000,\"description\":\"Internal Error. Please check the status of the service.\"}\n", string(s))
}

func TestHttpRouterServeHTTPRejectedExposesCause(t *testing.T) {
	recorder := serve(setupRouter(), "POST", "/rejected")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "{\"errorCode\":4001,\"description\":\"The key management service rejected the request.\",\"cause\":\"group not allowed\"}\n",
		recorder.Body.String())
}

func TestHttpRouterServeHTTPUnavailableHidesCause(t *testing.T) {
	recorder := serve(setupRouter(), "POST", "/unavailable")

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Equal(t, "{\"errorCode\":5001,\"description\":\"The key management service could not be reached.\"}\n",
		recorder.Body.String())
}

func TestHttpRouterServeHTTPUnauthorized(t *testing.T) {
	recorder := serve(setupRouter(), "POST", "/unauthorized")

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestHttpRouterTraceIDEchoed(t *testing.T) {
	recorder := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/path", nil)
	req.Header.Set(HttpHeaderTraceID, "trace-1234")

	setupRouter().ServeHTTP(recorder, req)

	assert.Equal(t, "trace-1234", recorder.Header().Get(HttpHeaderTraceID))
}

func TestHttpRouterTraceIDGenerated(t *testing.T) {
	recorder := serve(setupRouter(), "POST", "/unavailable")

	assert.Len(t, recorder.Header().Get(HttpHeaderTraceID), 36)
}

func TestHttpRouterHasHandler(t *testing.T) {
	router := setupRouter()

	assert.True(t, router.HasRoute("/path"))
	assert.True(t, router.HasHandler("/path", "PUT"))
	assert.False(t, router.HasHandler("/path", "DELETE"))
	assert.False(t, router.HasHandler("/unknown", "GET"))
}

func TestHttpStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HttpStatus(errors.ErrInvalidParameter.Category()))
	assert.Equal(t, http.StatusBadRequest, HttpStatus(errors.ErrServiceRejected.Category()))
	assert.Equal(t, http.StatusUnauthorized, HttpStatus(errors.ErrMissingCredential.Category()))
	assert.Equal(t, http.StatusServiceUnavailable, HttpStatus(errors.ErrLedgerUnavailable.Category()))
	assert.Equal(t, http.StatusBadGateway, HttpStatus(errors.ErrInvalidLedgerResponse.Category()))
	assert.Equal(t, http.StatusBadGateway, HttpStatus(errors.ErrInvalidServiceResponse.Category()))
	assert.Equal(t, http.StatusNotFound, HttpStatus(errors.NotFound))
	assert.Equal(t, http.StatusNotImplemented, HttpStatus(errors.NotImplemented))
	assert.Equal(t, http.StatusInternalServerError, HttpStatus(errors.ErrSerializeRequest.Category()))
	assert.Equal(t, http.StatusInternalServerError, HttpStatus(errors.ErrInternalError.Category()))
}

func TestHttpRouteCountsRequests(t *testing.T) {
	m := newTestMetrics()
	route := NewHttpRoute(HttpRouteProps{
		Path:     "/path",
		Logger:   logger,
		Encoder:  JsonEncoder{},
		Handlers: MethodHandlers{"GET": HttpMiddlewareOK{body: map[string]string{}}},
		Metrics:  m,
	})

	for i := 0; i < 2; i++ {
		recorder := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/path", nil)
		route.ServeHTTP(recorder, req)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RequestCounter("GET /path", "200")))
}

func TestHttpBinderBuildRouterNoEncoder(t *testing.T) {
	assert.Panics(t, func() {
		NewHttpBinder(HttpBinderProperties{
			Logger:         logger,
			HandlerFactory: HttpHandlerFactoryFunc(simpleHandlerFactory),
		})
	})
}

func TestHttpBinderBuildRouterNoLogger(t *testing.T) {
	assert.Panics(t, func() {
		NewHttpBinder(HttpBinderProperties{
			Encoder:        JsonEncoder{},
			HandlerFactory: HttpHandlerFactoryFunc(simpleHandlerFactory),
		})
	})
}

func TestHttpBinderBuildRouterNoFactory(t *testing.T) {
	assert.Panics(t, func() {
		NewHttpBinder(HttpBinderProperties{
			Encoder: JsonEncoder{},
			Logger:  logger,
		})
	})
}

func TestHttpBinderBuildRouter(t *testing.T) {
	binder := NewHttpBinder(HttpBinderProperties{
		Encoder:        JsonEncoder{},
		Logger:         logger,
		HandlerFactory: HttpHandlerFactoryFunc(simpleHandlerFactory),
		Metrics:        newTestMetrics(),
	})

	binder.Bind("GET", "/path", HandlerEcho{}, nil)
	router := binder.Build()

	recorder := serve(router, "GET", "/path")

	s, err := ioutil.ReadAll(recorder.Body)

	assert.Nil(t, err)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "", string(s))
	assert.False(t, binder.Build().HasRoute("/path"))
}

func TestHttpCorsPreProcessorPreflight(t *testing.T) {
	binder := NewHttpBinder(HttpBinderProperties{
		Encoder:        JsonEncoder{},
		Logger:         logger,
		HandlerFactory: HttpHandlerFactoryFunc(simpleHandlerFactory),
		Metrics:        newTestMetrics(),
	})
	binder.AddPreProcessor(NewHttpCorsPreProcessor(HttpCorsPreProcessorProps{
		Enabled:        true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "X-Payment-Key"},
	}))
	binder.Bind("POST", "/path", HandlerEcho{}, nil)
	router := binder.Build()

	recorder := httptest.NewRecorder()
	req, _ := http.NewRequest("OPTIONS", "/path", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestHttpCorsPreProcessorDisabled(t *testing.T) {
	preProcessor := NewHttpCorsPreProcessor(HttpCorsPreProcessorProps{Enabled: false})
	req, _ := http.NewRequest("OPTIONS", "/path", nil)

	ok, next := preProcessor.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, ok)
	assert.Equal(t, req, next)
}

func newJsonHandler() *HttpJsonHandler {
	return NewHttpJsonHandler(HttpJsonHandlerProperties{
		Limit:   1024,
		Handler: HandlerEcho{},
		Logger:  logger,
		Factory: mapEntityFactory(),
	})
}

func TestHttpJsonHandlerContentLengthMissing(t *testing.T) {
	req, _ := http.NewRequest("POST", "/path", nil)
	req.ContentLength = -1

	v, err := newJsonHandler().ServeHTTP(req)

	assert.Equal(t, "[2001] error code InputError with desc Content-length header missing from request.", err.Error())
	assert.Nil(t, v)
}

func TestHttpJsonHandlerContentLengthExceedsLimit(t *testing.T) {
	req, _ := http.NewRequest("POST", "/path", bytes.NewBufferString(""))
	req.ContentLength = 2048

	v, err := newJsonHandler().ServeHTTP(req)

	assert.Equal(t, "[2002] error code InputError with desc Content-length exceeds request limit.", err.Error())
	assert.Nil(t, v)
}

func TestHttpJsonHandlerContentMissing(t *testing.T) {
	req, _ := http.NewRequest("POST", "/path", bytes.NewBufferString(""))

	v, err := newJsonHandler().ServeHTTP(req)

	assert.True(t, errors.Is(err, errors.ErrDeserializeJSON))
	assert.Nil(t, v)
}

func TestHttpJsonHandlerContentTypeMissing(t *testing.T) {
	req, _ := http.NewRequest("POST", "/path", bytes.NewBufferString("{}"))

	v, err := newJsonHandler().ServeHTTP(req)

	assert.Equal(t, "[2003] error code InputError with desc Content-type should be application/json.", err.Error())
	assert.Nil(t, v)
}

func TestHttpJsonHandlerContentTypeWithCharset(t *testing.T) {
	req, _ := http.NewRequest("POST", "/path", bytes.NewBufferString("{\"key\":\"value\"}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	v, err := newJsonHandler().ServeHTTP(req)

	assert.Nil(t, err)
	assert.Equal(t, &map[string]string{"key": "value"}, v)
}

func TestHttpJsonHandlerInvalidJSON(t *testing.T) {
	req, _ := http.NewRequest("POST", "/path", bytes.NewBufferString("{\"key\":"))
	req.Header.Set("Content-Type", "application/json")

	v, err := newJsonHandler().ServeHTTP(req)

	assert.Equal(t, "[2004] error code InputError with desc Failed to deserialize body as JSON.", err.Error())
	assert.Nil(t, v)
}

func TestHttpJsonHandlerOK(t *testing.T) {
	req, _ := http.NewRequest("POST", "/path", bytes.NewBufferString("{\"key\":\"value\"}"))
	req.Header.Set("Content-Type", "application/json")

	v, err := newJsonHandler().ServeHTTP(req)

	assert.Nil(t, err)
	assert.Equal(t, &map[string]string{"key": "value"}, v)
}

func TestHttpJsonHandlerNilFactoryRejectsBody(t *testing.T) {
	handler := NewHttpJsonHandler(HttpJsonHandlerProperties{
		Handler: HandlerEcho{},
		Logger:  logger,
		Factory: EntityFactoryFunc(func() interface{} { return nil }),
	})

	req, _ := http.NewRequest("POST", "/path", bytes.NewBufferString("{}"))
	_, err := handler.ServeHTTP(req)
	assert.True(t, errors.Is(err, errors.ErrDeserializeJSON))

	req, _ = http.NewRequest("GET", "/path", nil)
	v, err := handler.ServeHTTP(req)
	assert.Nil(t, err)
	assert.Nil(t, v)
}

func TestHttpJsonHandlerQuery(t *testing.T) {
	handler := NewHttpJsonHandler(HttpJsonHandlerProperties{
		Handler: HandlerEcho{},
		Logger:  logger,
		Factory: EntityFactoryFunc(func() interface{} { return &queryEntity{} }),
	})

	req, _ := http.NewRequest("GET", "/path?tx_hash=abc", nil)

	v, err := handler.ServeHTTP(req)

	assert.Nil(t, err)
	assert.Equal(t, &queryEntity{Hash: "abc"}, v)
}

func TestHttpJsonHandlerQueryInvalid(t *testing.T) {
	handler := NewHttpJsonHandler(HttpJsonHandlerProperties{
		Handler: HandlerEcho{},
		Logger:  logger,
		Factory: EntityFactoryFunc(func() interface{} { return &queryEntity{} }),
	})

	req, _ := http.NewRequest("GET", "/path", nil)

	_, err := handler.ServeHTTP(req)

	assert.True(t, errors.Is(err, errors.ErrInvalidParameter))
	assert.Equal(t, "tx_hash is required", err.(errors.Error).Reason())
}

func TestNewHttpJsonHandlerPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewHttpJsonHandler(HttpJsonHandlerProperties{Logger: logger, Factory: mapEntityFactory()})
	})
	assert.Panics(t, func() {
		NewHttpJsonHandler(HttpJsonHandlerProperties{Handler: HandlerEcho{}, Factory: mapEntityFactory()})
	})
	assert.Panics(t, func() {
		NewHttpJsonHandler(HttpJsonHandlerProperties{Handler: HandlerEcho{}, Logger: logger})
	})
}
