package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType int

const (
	ErrorNone ErrorType = iota
	ErrorTransport
	ErrorProtocol
	ErrorFile
	ErrorInvalidArgument
)

// TransportError represents transport-layer specific errors
type TransportError int

const (
	TransportErrorNone TransportError = iota
	TransportErrorSocketListenFailure
	TransportErrorSocketAcceptFailure
	TransportErrorSocketConnectFailure
	TransportErrorSocketReadFailure
	TransportErrorSocketWriteFailure
	TransportErrorConnectionClosed
	TransportErrorIoUringInit
	TransportErrorIoUringSubmit
)

func (e TransportError) String() string {
	switch e {
	case TransportErrorSocketListenFailure:
		return "socket listen failed"
	case TransportErrorSocketAcceptFailure:
		return "socket accept failed"
	case TransportErrorSocketConnectFailure:
		return "socket connect failed"
	case TransportErrorSocketReadFailure:
		return "socket read failed"
	case TransportErrorSocketWriteFailure:
		return "socket write failed"
	case TransportErrorConnectionClosed:
		return "connection closed"
	case TransportErrorIoUringInit:
		return "io_uring init failed"
	case TransportErrorIoUringSubmit:
		return "io_uring submit failed"
	default:
		return fmt.Sprintf("transport error %d", int(e))
	}
}

// ProtocolError represents protocol-layer specific errors
type ProtocolError int

const (
	ProtocolErrorNone ProtocolError = iota
	ProtocolErrorMalformedRequest
	ProtocolErrorRequestTooLarge
	ProtocolErrorHeaderOverflow
	ProtocolErrorInvalidStatusLine
	ProtocolErrorIncompleteResponse
)

func (e ProtocolError) String() string {
	switch e {
	case ProtocolErrorMalformedRequest:
		return "malformed request"
	case ProtocolErrorRequestTooLarge:
		return "request too large"
	case ProtocolErrorHeaderOverflow:
		return "header render overflow"
	case ProtocolErrorInvalidStatusLine:
		return "invalid status line"
	case ProtocolErrorIncompleteResponse:
		return "incomplete response"
	default:
		return fmt.Sprintf("protocol error %d", int(e))
	}
}

// FileError represents filesystem errors met while serving a request
type FileError int

const (
	FileErrorNone FileError = iota
	FileErrorNotFound
	FileErrorAccess
	FileErrorMidStreamRead
)

func (e FileError) String() string {
	switch e {
	case FileErrorNotFound:
		return "file not found"
	case FileErrorAccess:
		return "file access failed"
	case FileErrorMidStreamRead:
		return "file read failed mid-stream"
	default:
		return fmt.Sprintf("file error %d", int(e))
	}
}

// HttpError is the main error type for the HTTP server
type HttpError struct {
	Type          ErrorType
	TransportErr  TransportError
	ProtocolErr   ProtocolError
	FileErr       FileError
	Message       string
	UnderlyingErr error
}

// Error implements the error interface
func (e *HttpError) Error() string {
	if e == nil {
		return "no error"
	}

	var typeStr string
	switch e.Type {
	case ErrorTransport:
		typeStr = fmt.Sprintf("Transport error (%s)", e.TransportErr)
	case ErrorProtocol:
		typeStr = fmt.Sprintf("Protocol error (%s)", e.ProtocolErr)
	case ErrorFile:
		typeStr = fmt.Sprintf("File error (%s)", e.FileErr)
	case ErrorInvalidArgument:
		typeStr = "Invalid argument"
	default:
		typeStr = "Unknown error"
	}

	if e.Message != "" {
		typeStr = fmt.Sprintf("%s: %s", typeStr, e.Message)
	}

	if e.UnderlyingErr != nil {
		return fmt.Sprintf("%s (caused by: %v)", typeStr, e.UnderlyingErr)
	}

	return typeStr
}

// Unwrap returns the underlying error for error chain support
func (e *HttpError) Unwrap() error {
	return e.UnderlyingErr
}

// NewTransportError creates a new transport error
func NewTransportError(err TransportError, message string, underlying error) *HttpError {
	return &HttpError{
		Type:          ErrorTransport,
		TransportErr:  err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewProtocolError creates a new protocol error
func NewProtocolError(err ProtocolError, message string) *HttpError {
	return &HttpError{
		Type:        ErrorProtocol,
		ProtocolErr: err,
		Message:     message,
	}
}

// NewFileError creates a new file error
func NewFileError(err FileError, message string, underlying error) *HttpError {
	return &HttpError{
		Type:          ErrorFile,
		FileErr:       err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message string) *HttpError {
	return &HttpError{
		Type:    ErrorInvalidArgument,
		Message: message,
	}
}

// IsTransport reports whether err carries the given transport error code
func IsTransport(err error, code TransportError) bool {
	var httpErr *HttpError
	return stderrors.As(err, &httpErr) && httpErr.Type == ErrorTransport && httpErr.TransportErr == code
}

// IsProtocol reports whether err carries the given protocol error code
func IsProtocol(err error, code ProtocolError) bool {
	var httpErr *HttpError
	return stderrors.As(err, &httpErr) && httpErr.Type == ErrorProtocol && httpErr.ProtocolErr == code
}

// IsFile reports whether err carries the given file error code
func IsFile(err error, code FileError) bool {
	var httpErr *HttpError
	return stderrors.As(err, &httpErr) && httpErr.Type == ErrorFile && httpErr.FileErr == code
}
