package errors

import (
	"fmt"

	"github.com/Kampouse/fastkv-server/log"
)

type Err interface {
	Error() string
	log.Loggable
}

var (
	ErrInternalError = ErrorCode{
		category: InternalError,
		code:     1000,
		desc:     "Internal Error. Please check the status of the service.",
	}

	ErrSerializeRequest = ErrorCode{
		category: InternalError,
		code:     1001,
		desc:     "Internal Error. Failed to serialize the execution request.",
	}

	ErrInvalidParameter = ErrorCode{
		category: InputError,
		code:     2000,
		desc:     "Invalid parameter provided.",
	}

	ErrHttpContentLengthMissing = ErrorCode{
		category: InputError,
		code:     2001,
		desc:     "Content-length header missing from request.",
	}

	ErrHttpContentLengthLimit = ErrorCode{
		category: InputError,
		code:     2002,
		desc:     "Content-length exceeds request limit.",
	}

	ErrHttpContentTypeApplicationJson = ErrorCode{
		category: InputError,
		code:     2003,
		desc:     "Content-type should be application/json.",
	}

	ErrDeserializeJSON = ErrorCode{
		category: InputError,
		code:     2004,
		desc:     "Failed to deserialize body as JSON.",
	}

	ErrEmptyInput = ErrorCode{
		category: InputError,
		code:     2005,
		desc:     "Required input field has not been set.",
	}

	ErrInvalidAccountID = ErrorCode{
		category: InputError,
		code:     2006,
		desc:     "Provided invalid account id.",
	}

	ErrMalformedDescriptor = ErrorCode{
		category: InputError,
		code:     2007,
		desc:     "Encrypted value has the enc: prefix but is not a valid descriptor.",
	}

	ErrBatchLimit = ErrorCode{
		category: InputError,
		code:     2008,
		desc:     "Batch size is out of the allowed range.",
	}

	ErrMissingCredential = ErrorCode{
		category: AuthenticationError,
		code:     3001,
		desc:     "Missing payment key. Set the X-Payment-Key header.",
	}

	ErrServiceRejected = ErrorCode{
		category: RejectedError,
		code:     4001,
		desc:     "The key management service rejected the request.",
	}

	ErrServiceUnavailable = ErrorCode{
		category: UnavailableError,
		code:     5001,
		desc:     "The key management service could not be reached.",
	}

	ErrLedgerUnavailable = ErrorCode{
		category: UnavailableError,
		code:     5002,
		desc:     "The ledger RPC endpoint could not be reached.",
	}

	ErrInvalidLedgerResponse = ErrorCode{
		category: UpstreamError,
		code:     5003,
		desc:     "The ledger RPC endpoint returned a response that could not be decoded.",
	}

	ErrInvalidServiceResponse = ErrorCode{
		category: UpstreamError,
		code:     5004,
		desc:     "The key management service returned a response without the expected fields.",
	}

	ErrPrometheusPushError = ErrorCode{
		category: InternalError,
		code:     6001,
		desc:     "Failed to push metrics to the prometheus push gateway.",
	}
)

// Category defines error categories that logically group them. This classification
// may be useful when mapping error categories together to a specific error type
// as it could be done by mapping errors to Http Status codes
type Category string

const (
	// InternalError refers to programming errors or other unexpected
	// errors in the normal execution of an action. The only action a
	// user can take out of an InternalError is reach out to the operator
	InternalError Category = "InternalError"

	// InputError refers to errors that are returned because the input
	// provided to execute an action is incorrect, malformed or could
	// not be parsed
	InputError Category = "InputError"

	// AuthenticationError refers to requests that lack the credentials
	// required to execute the action
	AuthenticationError Category = "AuthenticationError"

	// RejectedError refers to an application level error returned by
	// a collaborator that understood the request and refused it
	RejectedError Category = "RejectedError"

	// UnavailableError refers to failures to reach a collaborator
	UnavailableError Category = "UnavailableError"

	// UpstreamError refers to a collaborator that was reached but
	// answered with something that could not be understood
	UpstreamError Category = "UpstreamError"

	// NotFound refers to a resource that does not exist
	NotFound Category = "NotFound"

	// NotImplemented refers to errors in which the client attempts to
	// execute an action that has not yet been implemented by the server
	NotImplemented Category = "NotImplemented"
)

// Error is the implementation of an error for this package. It contains
// an instance of an ErrorCode which provides information about the error
// and a cause which might be nil if there's no underlying cause for
// the error
type Error struct {
	Cause     error
	ErrorCode ErrorCode
}

// Error is the implementation of error for Error
func (e Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%d] error code %s with desc %s",
			e.ErrorCode.Code(), e.ErrorCode.Category(), e.ErrorCode.Desc())
	}

	return fmt.Sprintf("[%d] error code %s with desc %s with cause %s",
		e.ErrorCode.Code(), e.ErrorCode.Category(), e.ErrorCode.Desc(), e.Cause)
}

// Unwrap returns the underlying cause
func (e Error) Unwrap() error {
	return e.Cause
}

// Log implementation of log.Loggable
func (e Error) Log(fields log.Fields) {
	fields.Add("err", e.ErrorCode.Desc())
	fields.Add("errorCode", e.ErrorCode.Code())

	if e.Cause != nil {
		fields.Add("cause", e.Cause.Error())
	}
}

// Reason returns the text of the cause when it is safe to show it to
// the caller. Causes of input errors are produced by the gateway
// itself and rejections carry the collaborator's own message, any
// other cause may contain transport details and is withheld.
func (e Error) Reason() string {
	if e.Cause == nil {
		return ""
	}

	switch e.ErrorCode.Category() {
	case InputError, RejectedError:
		return e.Cause.Error()
	default:
		return ""
	}
}

// New creates a new instance of an error
func New(errorCode ErrorCode, cause error) Error {
	return Error{Cause: cause, ErrorCode: errorCode}
}

// Is returns true if err is an Error with the provided error code
func Is(err error, errorCode ErrorCode) bool {
	switch e := err.(type) {
	case Error:
		return e.ErrorCode == errorCode
	case *Error:
		return e != nil && e.ErrorCode == errorCode
	default:
		return false
	}
}

// ErrorCode holds the necessary information to uniquely identify an error
// and make sure that a valuable response is returned to the user
// in case of encountering an error
type ErrorCode struct {
	// category is the type of the error
	category Category

	// code is a unique identifier for the error that can be used to identify
	// the particular type of error encountered
	code int

	// desc is a human readable description of the error that occurred
	// to aid the client in debugging
	desc string
}

// Category getter for category
func (e ErrorCode) Category() Category {
	return e.category
}

// Code getter for code
func (e ErrorCode) Code() int {
	return e.code
}

// Desc getter for desc
func (e ErrorCode) Desc() string {
	return e.desc
}
