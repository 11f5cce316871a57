// Package dbpserr defines the error kinds propagated by the sequencer,
// transport, and auth layers, per the error taxonomy in the service design:
// InvalidInput, Unsupported, Validation, Transport, Auth, and Shutdown.
package dbpserr

import (
	"github.com/cockroachdb/errors"
)

// Sentinel kinds. Use errors.Is(err, dbpserr.InvalidInput) to classify an
// error returned from this module or any of its callers.
var (
	InvalidInput = errors.New("dbps: invalid input")
	Unsupported  = errors.New("dbps: unsupported")
	Validation   = errors.New("dbps: validation failed")
	Transport    = errors.New("dbps: transport error")
	Auth         = errors.New("dbps: unauthorized")
	Shutdown     = errors.New("dbps: client shutting down")
)

// NewInvalidInput builds a formatted error marked as InvalidInput.
func NewInvalidInput(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), InvalidInput)
}

// NewUnsupported builds a formatted error marked as Unsupported. The
// sequencer treats this kind as the trigger for per-block fallback.
func NewUnsupported(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), Unsupported)
}

// NewValidation builds a formatted error marked as Validation.
func NewValidation(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), Validation)
}

// NewTransport wraps an underlying transport failure (timeout, refused
// connection, unexpected status) and marks it as Transport.
func NewTransport(cause error, format string, args ...interface{}) error {
	if cause == nil {
		return errors.Mark(errors.Newf(format, args...), Transport)
	}
	return errors.Mark(errors.Wrapf(cause, format, args...), Transport)
}

// NewAuth builds a formatted error marked as Auth.
func NewAuth(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), Auth)
}

// NewShutdown builds an error marked as Shutdown, returned to tasks
// still queued when a client is stopped.
func NewShutdown(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), Shutdown)
}

// IsInvalidInput reports whether err (or any error it wraps) is InvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, InvalidInput) }

// IsUnsupported reports whether err (or any error it wraps) is Unsupported.
func IsUnsupported(err error) bool { return errors.Is(err, Unsupported) }

// IsValidation reports whether err (or any error it wraps) is Validation.
func IsValidation(err error) bool { return errors.Is(err, Validation) }

// IsTransport reports whether err (or any error it wraps) is Transport.
func IsTransport(err error) bool { return errors.Is(err, Transport) }

// IsAuth reports whether err (or any error it wraps) is Auth.
func IsAuth(err error) bool { return errors.Is(err, Auth) }

// IsShutdown reports whether err (or any error it wraps) is Shutdown.
func IsShutdown(err error) bool { return errors.Is(err, Shutdown) }
