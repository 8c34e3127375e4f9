package health

import (
	"context"

	"github.com/Kampouse/fastkv-server/rpc"
)

type Services struct{}

type HealthHandler struct{}

func NewHealthHandler(services Services) HealthHandler {
	return HealthHandler{}
}

// GetHealth reports the component as healthy while it is able to
// serve requests. Collaborators are not probed
func (h HealthHandler) GetHealth(ctx context.Context, v interface{}) (interface{}, error) {
	return &GetHealthResponse{Health: Healthy}, nil
}

func BindHandler(services Services, binder rpc.HandlerBinder) {
	handler := NewHealthHandler(services)

	binder.Bind("GET", "/v1/api/health", rpc.HandlerFunc(handler.GetHealth),
		rpc.EntityFactoryFunc(func() interface{} { return nil }))
}
