package fluctuation

import "fmt"

// ConfigError reports invalid correction parameters or an unusable
// input shape. It is always raised synchronously, before any scratch
// buffer is allocated or worker started.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func configErrorf(format string, v ...interface{}) error {
	return &ConfigError{msg: fmt.Sprintf(format, v...)}
}

// DegeneracyError reports an image whose air-pixel collection is empty
// or averages to zero, leaving the correction factor undefined. A
// degenerate frame aborts the whole stack; substituting a default
// factor would silently corrupt downstream reconstruction.
type DegeneracyError struct {
	Reason string
}

func (e *DegeneracyError) Error() string {
	return "numerical degeneracy: " + e.Reason
}

// WorkerError is the aggregate failure of a parallel stack pass. It
// identifies the first failing frame and wraps its cause, so callers
// can still reach a DegeneracyError underneath with errors.As.
type WorkerError struct {
	Frame int
	Err   error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("correction failed at frame %d: %v", e.Frame, e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }
