// Package voerr defines the error taxonomy returned by the ext2 volume
// engine. The engine's command handlers return one of the sentinel
// VolumeError values below, wrapped with context via WithMessage or
// WrapError, rather than an ad hoc fmt.Errorf string. The exception is
// engine.CheckConsistency, whose findings are fmt.Errorf values collected
// with go-multierror.
package voerr

import "fmt"

type VolumeError string

const ErrIOFailed = VolumeError("input/output error")
const ErrInvalidImage = VolumeError("not a valid ext2 image")
const ErrNotFound = VolumeError("no such file or directory")
const ErrNotADirectory = VolumeError("not a directory")
const ErrNotAFile = VolumeError("not a regular file")
const ErrAlreadyExists = VolumeError("file exists")
const ErrInvalidName = VolumeError("invalid file name")
const ErrDirectoryNotEmpty = VolumeError("directory not empty")
const ErrDirectoryFull = VolumeError("no room left in directory block")
const ErrNoSpaceOnDevice = VolumeError("no space left on device")
const ErrCrossDirectory = VolumeError("cross-directory rename")
const ErrNotSupported = VolumeError("operation not supported")

func (e VolumeError) Error() string {
	return string(e)
}

func (e VolumeError) WithMessage(message string) Error {
	return wrappedError{message: message, cause: e}
}

func (e VolumeError) WrapError(err error) Error {
	return wrappedError{
		message: fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		cause:   err,
	}
}

// Error is a VolumeError carrying additional context. It still unwraps to
// one of the sentinel VolumeError values, so callers can use errors.Is
// against e.g. voerr.ErrNotFound regardless of how much context was added.
type Error interface {
	error
	WithMessage(message string) Error
	WrapError(err error) Error
	Unwrap() error
}

type wrappedError struct {
	message string
	cause   error
}

func (e wrappedError) Error() string {
	return e.message
}

func (e wrappedError) WithMessage(message string) Error {
	return wrappedError{
		message: fmt.Sprintf("%s: %s", message, e.message),
		cause:   e,
	}
}

func (e wrappedError) WrapError(err error) Error {
	return wrappedError{
		message: fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		cause:   err,
	}
}

func (e wrappedError) Unwrap() error {
	return e.cause
}
