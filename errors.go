package mseed

import (
	"errors"
	"fmt"

	"github.com/hupe1980/mseed/internal/resource"
	"github.com/hupe1980/mseed/record"
)

var (
	// ErrFormat matches every *FormatError.
	ErrFormat = record.ErrFormat

	// ErrNotFound is returned when a SourceID is not in the list.
	ErrNotFound = errors.New("not found")

	// ErrConfiguration is returned when an operation's precondition is not met.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidArgument is returned for invalid call arguments.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMemoryLimitExceeded is returned when buffered samples would exceed
	// the limit set with WithMemoryLimit.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

// FormatError reports malformed input or an unsupported encoding request.
type FormatError = record.FormatError

// NoSuchSourceIDError is returned by lookups of an absent SourceID.
type NoSuchSourceIDError struct {
	SourceID SourceID
}

func (e *NoSuchSourceIDError) Error() string {
	return fmt.Sprintf("source id %s not found", e.SourceID)
}

// Is reports whether target is ErrNotFound.
func (e *NoSuchSourceIDError) Is(target error) bool { return target == ErrNotFound }

// ConfigurationError indicates an operation that requires a setup the list
// does not have, e.g. materializing a segment without a record list.
type ConfigurationError struct {
	Op     string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// InvalidArgumentError indicates an invalid argument.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type InvalidArgumentError struct {
	Arg    string
	Reason string
	cause  error
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Arg, e.Reason)
}

// Is reports whether target is ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

func (e *InvalidArgumentError) Unwrap() error { return e.cause }
