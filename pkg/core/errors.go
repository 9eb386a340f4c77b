package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of a query failure.
type ErrorType int

// Error type constants categorize failures for display and handling.
const (
	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeCredentialsMissing indicates a blank API key or secret.
	ErrorTypeCredentialsMissing
	// ErrorTypeInvalidArgument indicates a blank symbol, interval or similar input.
	ErrorTypeInvalidArgument
	// ErrorTypeTimeout indicates the request exceeded its deadline and was aborted.
	ErrorTypeTimeout
	// ErrorTypeNetwork indicates a transport failure or an HTTP error status.
	ErrorTypeNetwork
	// ErrorTypeProtocol indicates a body that is not valid JSON or has the wrong shape.
	ErrorTypeProtocol
	// ErrorTypeExchange indicates the exchange answered with an error envelope.
	ErrorTypeExchange
	// ErrorTypeData indicates a well-formed response that lacks the requested data.
	ErrorTypeData
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	return [...]string{
		"UNKNOWN",
		"CREDENTIALS_MISSING",
		"INVALID_ARGUMENT",
		"TIMEOUT",
		"NETWORK",
		"PROTOCOL",
		"EXCHANGE",
		"DATA",
	}[t]
}

// Sentinel errors for common error conditions.
var (
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")
	// ErrCircuitBreakerOpen is returned while the circuit breaker rejects requests.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	// ErrUnsupported is returned for operations an adapter does not implement.
	ErrUnsupported = errors.New("unsupported operation")
)

// Error is the failure value of every query. Error() returns Message
// unchanged so the UI can show it verbatim.
type Error struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType `json:"type"`
	// Op names the operation that failed.
	Op Operation `json:"op"`
	// StatusCode is the HTTP status code, zero when no response was received.
	StatusCode int `json:"status_code,omitempty"`
	// Code is the exchange-specific error code, if any.
	Code string `json:"code,omitempty"`
	// Message is the human-readable error description.
	Message string `json:"message"`
	// Body is the raw response body that accompanied the failure.
	Body []byte `json:"-"`
	// Exchange identifies which exchange produced this error.
	Exchange string `json:"exchange,omitempty"`
	// Timestamp is when the error occurred.
	Timestamp time.Time `json:"timestamp"`
	// Err is the underlying cause.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Detail returns a diagnostic string with type, operation and codes.
func (e *Error) Detail() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s %s (%d/%s): %s",
			e.Exchange, e.Op, e.Type, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s %s (%d): %s",
		e.Exchange, e.Op, e.Type, e.StatusCode, e.Message)
}

// WithOp sets the operation and returns the error for chaining.
func (e *Error) WithOp(op Operation) *Error {
	e.Op = op
	return e
}

// WithExchange sets the exchange name and returns the error for chaining.
func (e *Error) WithExchange(exchange string) *Error {
	e.Exchange = exchange
	return e
}

// WithCode sets the exchange error code and returns the error for chaining.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// NewError creates an Error of the given type.
// The timestamp is automatically set to the current time.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:      errorType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Errorf creates an Error of the given type with a formatted message.
func Errorf(errorType ErrorType, format string, args ...any) *Error {
	return NewError(errorType, fmt.Sprintf(format, args...))
}

// WrapError creates an Error of the given type that wraps cause.
func WrapError(errorType ErrorType, message string, cause error) *Error {
	e := NewError(errorType, message)
	e.Err = cause
	return e
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown when err carries none.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Message returns the display text of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsCredentialsMissing returns true if the query failed before I/O because of blank credentials.
func IsCredentialsMissing(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeCredentialsMissing
}

// IsInvalidArgument returns true if the query was rejected because of its inputs.
func IsInvalidArgument(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeInvalidArgument
}

// IsTimeoutError returns true if the request was aborted at its deadline.
func IsTimeoutError(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeTimeout
}

// IsNetworkError returns true if the error is a transport failure or HTTP error status.
func IsNetworkError(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeNetwork
}

// IsProtocolError returns true if the response body could not be understood.
func IsProtocolError(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeProtocol
}

// IsExchangeError returns true if the exchange reported the failure itself.
func IsExchangeError(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeExchange
}

// IsDataError returns true if the response was valid but held no usable data.
func IsDataError(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeData
}

// IsTransportFailure reports whether err should count against the circuit breaker.
func IsTransportFailure(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeNetwork, ErrorTypeTimeout:
		var e *Error
		if errors.As(err, &e) && e.StatusCode >= 400 && e.StatusCode < 500 {
			return false
		}
		return true
	default:
		return false
	}
}
