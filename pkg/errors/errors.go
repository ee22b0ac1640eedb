package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRow      = errors.New("malformed dump row")
	ErrMissingColumn     = errors.New("required schema column missing")
	ErrEncoding          = errors.New("unexpected byte encoding")
	ErrOffsetMismatch    = errors.New("anchor offset mismatch")
	ErrUnresolvableTitle = errors.New("title could not be resolved")
	ErrFilesFailed       = errors.New("files failed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrCacheStale        = errors.New("cache artifact is stale")
)

// Process exit codes reported by the cmd/ binaries.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitBadInput    = 3
	ExitEncoding    = 4
	ExitPartialFail = 5
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// EncodingError reports a decoding failure together with the remediation
// operators should try next.
func EncodingError(path string, line int, encoding string) *AppError {
	alt := "iso-8859-1"
	if encoding == alt {
		alt = "utf-8"
	}
	return Newf(ErrEncoding, ExitEncoding,
		"%s line %d is not valid %s; retry with encoding: %s", path, line, encoding, alt)
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.ExitCode != 0 {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMissingColumn):
		return ExitBadInput
	case errors.Is(err, ErrEncoding):
		return ExitEncoding
	case errors.Is(err, ErrFilesFailed):
		return ExitPartialFail
	default:
		return ExitFailure
	}
}
