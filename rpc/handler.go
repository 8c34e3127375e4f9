package rpc

import (
	"context"
	"net/url"
)

// Handler is the handler for RPC requests.
type Handler interface {
	// Handle handlers an rpc request and returns a response or error if needed.
	// Implementations should ensure that if a context is cancelled the request
	// handling should be halt gracefully and return an appropriate error.
	Handle(ctx context.Context, body interface{}) (interface{}, error)
}

// HandlerFunc is the type definition for a function to be able to act as a Handler
type HandlerFunc func(ctx context.Context, body interface{}) (interface{}, error)

// Handle is the implementation of the Handler interface for a HandlerFunc
func (h HandlerFunc) Handle(ctx context.Context, body interface{}) (interface{}, error) {
	return h(ctx, body)
}

// EntityFactory creates the instances into which request payloads
// are deserialized
type EntityFactory interface {
	// Create returns a new instance, or nil if the handler does not
	// expect a payload
	Create() interface{}
}

// EntityFactoryFunc allows functions to act as an EntityFactory
type EntityFactoryFunc func() interface{}

// Create is the implementation of EntityFactory for EntityFactoryFunc
func (f EntityFactoryFunc) Create() interface{} {
	return f()
}

// QueryDecoder is implemented by entities that are populated from
// the query parameters of a request instead of its body
type QueryDecoder interface {
	DecodeQuery(values url.Values) error
}

// HandlerBinder binds handlers to a method and uri
type HandlerBinder interface {
	Bind(method string, uri string, handler Handler, factory EntityFactory)
}
