package models

import "fmt"

// ConfigError reports a bad request: an unknown name, an unsupported
// combination of options, or input data that does not fit the variant.
type ConfigError struct {
	Param string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Param == "" {
		return "invalid configuration: " + e.Msg
	}
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Msg)
}

// InvariantError reports an internal failure such as a violated
// precondition or a solver that did not converge.
type InvariantError struct {
	Op  string
	Msg string
	Err error
}

func (e *InvariantError) Error() string {
	msg := e.Op + ": " + e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

// Invariantf builds an InvariantError with a formatted message.
func Invariantf(op, format string, args ...any) *InvariantError {
	return &InvariantError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
