package health

// HealthStatus is the health of the component
type HealthStatus string

const Healthy HealthStatus = "healthy"

// GetHealthResponse is the response to the health request
type GetHealthResponse struct {
	Health HealthStatus `json:"health"`
}
