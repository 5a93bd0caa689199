package types

import "fmt"

// ConfigError marks invalid configuration or a malformed expectation
// table. Fatal for the current run; never retried.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Reason, e.Err)
	}
	return "config: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError builds a ConfigError with a formatted reason.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// QueryError marks a failed geometry-engine query or command. The run
// aborts; the batch runner records it as a failed row and moves on.
type QueryError struct {
	Op   string // engine operation, e.g. "snapshot", "apply_translation"
	Mesh string // target mesh, when the operation has one
	Err  error
}

func (e *QueryError) Error() string {
	if e.Mesh != "" {
		return fmt.Sprintf("engine %s %q: %v", e.Op, e.Mesh, e.Err)
	}
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// IOError marks a missing or unreadable input file or an unwritable
// output path. Batch-tolerant like QueryError.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
