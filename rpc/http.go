package rpc

import (
	stderr "errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/Kampouse/fastkv-server/errors"
	"github.com/Kampouse/fastkv-server/log"
	"github.com/Kampouse/fastkv-server/metrics"
	"github.com/rs/cors"
)

// HttpHeaderTraceID is the header used to propagate the trace id of a
// request. It is read from requests and set on every response
const HttpHeaderTraceID = "X-FASTKV-TRACE-ID"

// HttpPreProcessor processes a request and can directly write a response
// to the writer if required.
type HttpPreProcessor interface {
	// ServeHTTP is a similar interface to http.Handler with the difference that
	// it returns true parameters. The boolean parameter indicates in case of its
	// value being true that the request can be further processed by another handler.
	// In case that it's false, no further processing of the request is required.
	// The *http.Request returned is a potentially modified request resulting of
	// mutating the original *http.Request
	ServeHTTP(w http.ResponseWriter, req *http.Request) (bool, *http.Request)
}

// HttpMiddleware are the handlers that offer extra functionality to a request and
// that in success will forward the request to another handler
type HttpMiddleware interface {
	// ServeHTTP allows to handle an http request. The response will be serialized
	// by an HttpRouter
	ServeHTTP(req *http.Request) (interface{}, error)
}

// HttpMiddlewareFunc allows functions to implement the HttpMiddleware interface
type HttpMiddlewareFunc func(req *http.Request) (interface{}, error)

func (f HttpMiddlewareFunc) ServeHTTP(req *http.Request) (interface{}, error) {
	return f(req)
}

// HttpError holds the necessary information to return an error when
// using the http protocol
type HttpError struct {
	// Cause of the creation of this HttpError instance
	Cause *errors.Error

	// StatusCode is the HTTP status code that defines the error cause
	StatusCode int
}

// Log implementation of log.Loggable
func (e HttpError) Log(fields log.Fields) {
	fields.Add("status_code", e.StatusCode)

	if e.Cause != nil {
		e.Cause.Log(fields)
	}
}

// Error is the implementation of go's error interface for Error
func (e HttpError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("http error with status code %d", e.StatusCode)
	}

	return fmt.Sprintf("%s with status code %d", e.Cause.Error(), e.StatusCode)
}

// MakeHttpError makes a new http error
func MakeHttpError(err errors.Error, statusCode int) *HttpError {
	return &HttpError{
		Cause:      &err,
		StatusCode: statusCode,
	}
}

// HttpStatus returns the status code for the category of the error
func HttpStatus(category errors.Category) int {
	switch category {
	case errors.InputError, errors.RejectedError:
		return http.StatusBadRequest
	case errors.AuthenticationError:
		return http.StatusUnauthorized
	case errors.UnavailableError:
		return http.StatusServiceUnavailable
	case errors.UpstreamError:
		return http.StatusBadGateway
	case errors.NotFound:
		return http.StatusNotFound
	case errors.NotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func toHttpError(err error) *HttpError {
	switch err := err.(type) {
	case HttpError:
		return &err
	case *HttpError:
		return err
	case errors.Error:
		return MakeHttpError(err, HttpStatus(err.ErrorCode.Category()))
	case *errors.Error:
		return MakeHttpError(*err, HttpStatus(err.ErrorCode.Category()))
	default:
		return MakeHttpError(errors.New(errors.ErrInternalError, err), http.StatusInternalServerError)
	}
}

// MethodHandlers keeps the handlers for each of the methods
type MethodHandlers map[string]HttpMiddleware

// Add a new handler to the set
func (h MethodHandlers) Add(method string, middleware HttpMiddleware) {
	h[method] = middleware
}

// HttpRoute multiplexes the handling of a request to the handler
// that expects a particular method
type HttpRoute struct {
	path          string
	logger        log.Logger
	handlers      map[string]HttpMiddleware
	preProcessors []HttpPreProcessor
	encoder       Encoder
	metrics       *metrics.ServiceMetrics
}

// HttpRouteProps are the required properties to create
// a new HttpRoute instance
type HttpRouteProps struct {
	Path          string
	Logger        log.Logger
	Encoder       Encoder
	Handlers      MethodHandlers
	PreProcessors []HttpPreProcessor
	Metrics       *metrics.ServiceMetrics
}

// NewHttpRoute creates a new route instance
func NewHttpRoute(props HttpRouteProps) *HttpRoute {
	m := props.Metrics
	if m == nil {
		m = metrics.NewDefaultServiceMetrics("http")
	}

	return &HttpRoute{
		path:          props.Path,
		logger:        props.Logger,
		handlers:      props.Handlers,
		preProcessors: props.PreProcessors,
		encoder:       props.Encoder,
		metrics:       m,
	}
}

// HasHandler returns true if the route has a handler that
// would handle the provided method
func (h *HttpRoute) HasHandler(method string) bool {
	_, ok := h.handlers[method]
	return ok
}

// HttpRoute implementation of http.Handler
func (h *HttpRoute) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	endpoint := req.Method + " " + h.path
	timer := h.metrics.RequestTimer(endpoint)
	defer timer.ObserveDuration()

	var ok bool
	for _, preProcessor := range h.preProcessors {
		ok, req = preProcessor.ServeHTTP(res, req)
		if !ok {
			h.metrics.RequestCounter(endpoint, "preprocessor").Inc()
			return
		}
	}

	status := h.serveHTTP(res, req)
	h.metrics.RequestCounter(endpoint, strconv.Itoa(status)).Inc()
}

func (h *HttpRoute) serveHTTP(res http.ResponseWriter, req *http.Request) int {
	handler, ok := h.handlers[req.Method]
	if !ok {
		return reportError(h.logger, h.encoder, res, req, &HttpError{StatusCode: http.StatusMethodNotAllowed})
	}

	v, err := handler.ServeHTTP(req)
	if err != nil {
		return reportError(h.logger, h.encoder, res, req, toHttpError(err))
	}

	return h.reportSuccess(res, req, v)
}

func (h *HttpRoute) reportSuccess(res http.ResponseWriter, req *http.Request, body interface{}) int {
	fields := log.MapFields{
		"path":      req.URL.EscapedPath(),
		"method":    req.Method,
		"call_type": "HttpRequestHandleSuccess",
	}

	setTraceID(res, req)

	if body == nil {
		res.WriteHeader(http.StatusNoContent)
		fields["status_code"] = http.StatusNoContent
		h.logger.Info(req.Context(), "", fields)
		return http.StatusNoContent
	}

	res.Header().Set("Content-Type", "application/json")
	if err := h.encoder.Encode(res, body); err != nil {
		fields["call_type"] = "HttpRequestHandleFailure"
		fields["err"] = err.Error()
		h.logger.Warn(req.Context(), "failed to encode response to response writer", fields)
		return http.StatusInternalServerError
	}

	fields["status_code"] = http.StatusOK
	h.logger.Info(req.Context(), "", fields)
	return http.StatusOK
}

func setTraceID(res http.ResponseWriter, req *http.Request) {
	res.Header().Set(HttpHeaderTraceID, log.GetTraceID(req.Context()))
}

func reportError(
	logger log.Logger,
	encoder Encoder,
	res http.ResponseWriter,
	req *http.Request,
	err *HttpError,
) int {
	fields := log.MapFields{
		"path":      req.URL.EscapedPath(),
		"method":    req.Method,
		"call_type": "HttpRequestHandleFailure",
	}

	setTraceID(res, req)

	if err.Cause == nil {
		res.WriteHeader(err.StatusCode)
		logger.Info(req.Context(), "", fields, err)
		return err.StatusCode
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(err.StatusCode)

	if eerr := encoder.Encode(res, Error{
		ErrorCode:   err.Cause.ErrorCode.Code(),
		Description: err.Cause.ErrorCode.Desc(),
		Cause:       err.Cause.Reason(),
	}); eerr != nil {
		logger.Debug(req.Context(), "failed to encode error response to response writer", fields, err)
		return err.StatusCode
	}

	logger.Info(req.Context(), "", fields, err)
	return err.StatusCode
}

// HttpRouter multiplexes the handling of server request amongst the different
// handlers
type HttpRouter struct {
	encoder Encoder
	mux     map[string]*HttpRoute
	logger  log.Logger
}

// HasRoute returns true if the router has a route to
// handle a request to the path
func (h *HttpRouter) HasRoute(path string) bool {
	_, ok := h.mux[path]
	return ok
}

// HasHandler returns true if the router has a handle to
// handle a request to the path and method
func (h *HttpRouter) HasHandler(path, method string) bool {
	route, ok := h.mux[path]
	if !ok {
		return false
	}

	return route.HasHandler(method)
}

// HttpRouter implementation of http.Handler
func (h *HttpRouter) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	path := req.URL.EscapedPath()
	method := req.Method
	traceID := ParseTraceID(req.Header.Get(HttpHeaderTraceID))
	req = req.WithContext(log.PutTraceID(req.Context(), traceID))

	h.logger.Debug(req.Context(), "", log.MapFields{
		"path":      path,
		"method":    method,
		"call_type": "HttpRequestHandleAttempt",
	})

	defer func() {
		if r := recover(); r != nil {
			var err error
			stacktrace := debug.Stack()

			switch x := r.(type) {
			case string:
				err = stderr.New(x)
			case error:
				err = x
			default:
				err = fmt.Errorf("unknown panic %+v", r)
			}

			h.logger.Warn(req.Context(), "unexpected panic caught", log.MapFields{
				"path":       path,
				"method":     method,
				"call_type":  "HttpRequestHandleFailure",
				"err":        err.Error(),
				"stacktrace": string(stacktrace),
			})

			// the panic may carry internal details, the caller only
			// receives a generic error
			reportError(h.logger, h.encoder, res, req, toHttpError(
				stderr.New("unexpected error occurred")))
		}
	}()

	route, ok := h.mux[path]
	if !ok {
		reportError(h.logger, h.encoder, res, req, &HttpError{StatusCode: http.StatusNotFound})
		return
	}

	route.ServeHTTP(res, req)
}

// HttpCorsPreProcessorProps properties used to define the behaviour
// of the CORS implementation
type HttpCorsPreProcessorProps struct {
	// Enabled if true the HttpCorsHandler will verify requests, if false
	// the handler will just pass on a request to the next middleware
	Enabled bool

	// AllowedOrigins is a list of origins a cross-domain request can be executed from.
	// If the special "*" value is present in the list, all origins will be allowed.
	// An origin may contain a wildcard (*) to replace 0 or more characters
	// (i.e.: http://*.domain.com). Usage of wildcards implies a small performance penalty.
	// Only one wildcard can be used per origin.
	// Default value is ["*"]
	AllowedOrigins []string

	// AllowedMethods is a list of methods the client is allowed to use with
	// cross-domain requests. Default value is simple methods (HEAD, GET and POST).
	AllowedMethods []string

	// AllowedHeaders is list of non simple headers the client is allowed to use with
	// cross-domain requests.
	// If the special "*" value is present in the list, all headers will be allowed.
	// Default value is [] but "Origin" is always appended to the list.
	AllowedHeaders []string

	// ExposedHeaders indicates which headers are safe to expose to the API of a CORS
	// API specification
	ExposedHeaders []string

	// MaxAge indicates how long (in seconds) the results of a preflight request
	// can be cached
	MaxAge int
}

// HttpCorsPreProcessor handles CORS https://developer.mozilla.org/en-US/docs/Web/HTTP/CORS
// for requests
type HttpCorsPreProcessor struct {
	cors    *cors.Cors
	enabled bool
}

// NewHttpCorsPreProcessor creates a new instance of a Cors Http PreProcessor
func NewHttpCorsPreProcessor(props HttpCorsPreProcessorProps) *HttpCorsPreProcessor {
	cors := cors.New(cors.Options{
		AllowedOrigins:     props.AllowedOrigins,
		AllowedMethods:     props.AllowedMethods,
		AllowedHeaders:     props.AllowedHeaders,
		ExposedHeaders:     props.ExposedHeaders,
		MaxAge:             props.MaxAge,
		OptionsPassthrough: false,
		Debug:              false,
	})

	return &HttpCorsPreProcessor{
		cors:    cors,
		enabled: props.Enabled,
	}
}

// ServeHTTP is the implementation of HttpPreProcessor for HttpCorsPreProcessor
func (h *HttpCorsPreProcessor) ServeHTTP(w http.ResponseWriter, req *http.Request) (bool, *http.Request) {
	if !h.enabled {
		return true, req
	}

	var (
		next    bool
		nextReq *http.Request
	)

	h.cors.ServeHTTP(w, req, func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodOptions {
			// if it is a query request this handler can give a response directly
			w.WriteHeader(http.StatusOK)
			next = false
			return
		}

		next = true
		nextReq = req
	})

	return next, nextReq
}

// HttpJsonHandler handles requests that expect a body in the JSON format,
// handles the body and executes the final handler with the expected type.
// Entities that implement QueryDecoder are populated from the query of
// the request instead
type HttpJsonHandler struct {
	limit   int64
	decoder JsonDecoder
	handler Handler
	logger  log.Logger
	factory EntityFactory
}

type HttpJsonHandlerProperties struct {
	// Limit is the maximum number of bytes an Http body can have. Bodies
	// with a higher limit will fail to deserialize and be rejected
	Limit int64

	// Handler is the rpc handler that will be used to handle the request
	Handler Handler

	// Logger
	Logger log.Logger

	// Factory for creating new instances of objects to which the Http body
	// will be deserialized. Those instances will be passed to the handler
	Factory EntityFactory
}

// NewHttpJsonHandler creates a new instance of an rpc handler
// that deserializes json objects into Go objects
func NewHttpJsonHandler(properties HttpJsonHandlerProperties) *HttpJsonHandler {
	limit := properties.Limit

	// set a reasonable default limit in case Limit is not set
	if limit <= 0 {
		limit = 1 << 16 // 64 KB
	}

	if properties.Handler == nil {
		panic("handler must be set")
	}

	if properties.Logger == nil {
		panic("logger must be set")
	}

	if properties.Factory == nil {
		panic("factory must be set")
	}

	return &HttpJsonHandler{
		limit:   limit,
		decoder: JsonDecoder{},
		handler: properties.Handler,
		logger:  properties.Logger.ForClass("http", "HttpJsonHandler"),
		factory: properties.Factory,
	}
}

// ServeHTTP is the implementation of HttpMiddleware for HttpJsonHandler
func (h *HttpJsonHandler) ServeHTTP(req *http.Request) (interface{}, error) {
	fields := log.MapFields{
		"path":           req.URL.EscapedPath(),
		"method":         req.Method,
		"content_length": req.ContentLength,
		"call_type":      "HttpJsonRequestHandleFailure",
	}

	body := h.factory.Create()

	if decoder, ok := body.(QueryDecoder); ok {
		if err := decoder.DecodeQuery(req.URL.Query()); err != nil {
			h.logger.Debug(req.Context(), "failed to decode query", fields)
			return nil, errors.New(errors.ErrInvalidParameter, err)
		}

		return h.handler.Handle(req.Context(), body)
	}

	if req.ContentLength > h.limit {
		fields["limit"] = h.limit
		h.logger.Debug(req.Context(), "Content-length exceeds request limit", fields)
		return nil, errors.New(errors.ErrHttpContentLengthLimit, nil)
	}

	if body == nil {
		if req.ContentLength > 0 {
			h.logger.Debug(req.Context(), "received request body for handler that does not expect a request body", fields)
			return nil, errors.New(errors.ErrDeserializeJSON, nil)
		}

		return h.handler.Handle(req.Context(), nil)
	}

	// requests with a body must carry its length
	if req.ContentLength < 0 {
		h.logger.Debug(req.Context(), "Content-length header missing from request", fields)
		return nil, errors.New(errors.ErrHttpContentLengthMissing, nil)
	}

	if req.ContentLength == 0 {
		return nil, errors.New(errors.ErrDeserializeJSON, stderr.New("request body is empty"))
	}

	if !isJSONContentType(req.Header.Get("Content-Type")) {
		h.logger.Debug(req.Context(), "Content-type is not for json", fields)
		return nil, errors.New(errors.ErrHttpContentTypeApplicationJson, nil)
	}

	if err := h.decoder.DecodeWithLimit(req.Body, body, req.ContentLength); err != nil {
		fields["err"] = err.Error()
		h.logger.Debug(req.Context(), "failed to decode json", fields)
		return nil, errors.New(errors.ErrDeserializeJSON, nil)
	}

	// provide the parsed body to the handler and handle execution
	return h.handler.Handle(req.Context(), body)
}

func isJSONContentType(contentType string) bool {
	const mime = "application/json"
	if len(contentType) < len(mime) || contentType[:len(mime)] != mime {
		return false
	}

	return len(contentType) == len(mime) || contentType[len(mime)] == ';'
}

// HttpHandlerFactory converts an rpc Handler into HttpMiddleware
// that can be plugged into a router
type HttpHandlerFactory interface {
	Make(factory EntityFactory, handler Handler) HttpMiddleware
}

// HttpHandlerFactoryFunc to allow functions to act as an HttpHandlerFactory
type HttpHandlerFactoryFunc func(factory EntityFactory, handler Handler) HttpMiddleware

// Make is the implementation of HttpHandlerFactory for HttpHandlerFactoryFunc
func (f HttpHandlerFactoryFunc) Make(factory EntityFactory, handler Handler) HttpMiddleware {
	return f(factory, handler)
}

// HttpBinder is the binder for http. It is also the only mechanism to build
// HttpRouter's. This is done so that an HttpRouter cannot be modified
// after it has been created
type HttpBinder struct {
	handlers      map[string]MethodHandlers
	preProcessors []HttpPreProcessor
	encoder       Encoder
	logger        log.Logger
	factory       HttpHandlerFactory
	metrics       *metrics.ServiceMetrics
}

// Bind is the implementation of HandlerBinder for HttpBinder
func (b *HttpBinder) Bind(method string, uri string, handler Handler, factory EntityFactory) {
	route, ok := b.handlers[uri]
	if !ok {
		route = make(MethodHandlers)
		b.handlers[uri] = route
	}

	route.Add(method, b.factory.Make(factory, handler))
}

func (b *HttpBinder) AddPreProcessor(preProcessor HttpPreProcessor) {
	b.preProcessors = append(b.preProcessors, preProcessor)
}

// Build creates a new HttpRouter and clears the handler map of the
// HttpBinder, so if new instances of HttpRouters need to be build
// Bind needs to be used again
func (b *HttpBinder) Build() *HttpRouter {
	mux := make(map[string]*HttpRoute)

	for path, handlers := range b.handlers {
		mux[path] = NewHttpRoute(HttpRouteProps{
			Path:          path,
			Logger:        b.logger,
			Encoder:       b.encoder,
			Handlers:      handlers,
			PreProcessors: b.preProcessors,
			Metrics:       b.metrics,
		})
	}

	// avoid modification of the router handlers after the router
	// handler has been created
	b.handlers = make(map[string]MethodHandlers)

	return &HttpRouter{
		encoder: b.encoder,
		logger:  b.logger.ForClass("http", "router"),
		mux:     mux,
	}
}

// HttpBinderProperties are the properties used to create
// a new instance of an HttpBinder
type HttpBinderProperties struct {
	Encoder        Encoder
	Logger         log.Logger
	HandlerFactory HttpHandlerFactory

	// Metrics of the routes, the default registry is used when unset
	Metrics *metrics.ServiceMetrics
}

// NewHttpBinder creates a new instance of the HttpBinder. It will
// panic in case there are errors in the construction of the binder
func NewHttpBinder(properties HttpBinderProperties) *HttpBinder {
	if properties.Encoder == nil {
		panic("Encoder must be set")
	}

	if properties.Logger == nil {
		panic("Logger must be set")
	}

	if properties.HandlerFactory == nil {
		panic("HandlerFactory must be set")
	}

	m := properties.Metrics
	if m == nil {
		m = metrics.NewDefaultServiceMetrics("http")
	}

	return &HttpBinder{
		handlers: make(map[string]MethodHandlers),
		encoder:  properties.Encoder,
		logger:   properties.Logger,
		factory:  properties.HandlerFactory,
		metrics:  m,
	}
}
