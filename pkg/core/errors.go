package core

import "github.com/pkg/errors"

// Error kinds separate startup failures (abort with a diagnostic) from
// runtime defects. Numeric errors are not represented here: a NaN or Inf in
// a PDF or throughput is logged, the sample dropped, and rendering continues.
var (
	// ErrConfig marks scene-description errors: unknown tags, missing
	// attributes, references to undefined ids.
	ErrConfig = errors.New("config error")

	// ErrIO marks file and data errors: unreadable files, malformed meshes
	// or images.
	ErrIO = errors.New("io error")

	// ErrCapability marks use of an unimplemented feature.
	ErrCapability = errors.New("unsupported feature")
)

// Exit codes for the CLI shell
const (
	ExitOK         = 0
	ExitConfigErr  = 1
	ExitIOErr      = 2
	ExitRuntimeErr = 3
)

// ExitCode maps an error chain to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfig):
		return ExitConfigErr
	case errors.Is(err, ErrIO):
		return ExitIOErr
	default:
		return ExitRuntimeErr
	}
}

// ConfigErrorf wraps ErrConfig with a formatted diagnostic
func ConfigErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfig, format, args...)
}

// IOErrorf wraps ErrIO with a formatted diagnostic
func IOErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrIO, format, args...)
}
