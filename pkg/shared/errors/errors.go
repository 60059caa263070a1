// Package errors holds the typed errors shared between the CLI surface and
// the audit engine.
package errors

import (
	"fmt"
)

// NotImplementedError reports an analyzer plugin operation the plugin does
// not support.
type NotImplementedError struct {
	MethodName string
	PluginName string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("method %q is not implemented for %q", e.MethodName, e.PluginName)
}

// NewNotImplementedError constructs a NotImplementedError.
func NewNotImplementedError(methodName, pluginName string) error {
	return &NotImplementedError{
		MethodName: methodName,
		PluginName: pluginName,
	}
}

// CommandError carries a process exit code alongside the error message so a
// failed audit, a stopped audit and a usage error can exit differently.
type CommandError struct {
	ExitCode    int
	CommonError string
}

func (e *CommandError) Error() string {
	return e.CommonError
}

// NewCommandError wraps err with an explicit exit code.
func NewCommandError(err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
	}
}
