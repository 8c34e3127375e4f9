package rpc

// Error is the response returned by the server when it fails
// to satisfy a request
type Error struct {
	// ErrorCode is a unique identifier for the error that can be used to identify
	// the particular type of error encountered
	ErrorCode int `json:"errorCode"`

	// Description is a human readable description of the error that occurred
	// to aid the client in debugging
	Description string `json:"description"`

	// Cause is the reason of the failure when it can be exposed to the
	// caller, such as a validation failure or a rejection by the key
	// management service
	Cause string `json:"cause,omitempty"`
}

// Error is the implementation of go's error interface for Error
func (e Error) Error() string {
	if len(e.Cause) == 0 {
		return e.Description
	}

	return e.Description + " " + e.Cause
}
