package version

// GetVersionResponse is the response to the version request
type GetVersionResponse struct {
	Version int `json:"version"`
}
