package tools

import (
	"fmt"
)

// Result is the normalized outcome of a tool execution. It is always a map
// so it can be serialized back to the model: success results carry
// tool-specific keys, failures carry a single "error" key.
type Result map[string]any

// ErrorKind classifies tool failures so the loop can distinguish "tell the
// user" from "log and maybe retry".
type ErrorKind string

const (
	// KindPrecondition covers expected failures: integration not
	// connected, missing required argument, contact not found.
	KindPrecondition ErrorKind = "precondition"
	// KindTransient covers provider/network failures during the call.
	KindTransient ErrorKind = "transient"
	// KindFatal covers failures that will not succeed on retry.
	KindFatal ErrorKind = "fatal"
)

// ToolError is a classified tool failure. Its message is what the model
// sees; the kind only drives logging and retry decisions.
type ToolError struct {
	Kind ErrorKind
	Msg  string
}

func (e *ToolError) Error() string { return e.Msg }

// Result renders the failure in the uniform error shape.
func (e *ToolError) Result() Result { return Result{"error": e.Msg} }

// Preconditionf builds a precondition ToolError.
func Preconditionf(format string, args ...any) *ToolError {
	return &ToolError{Kind: KindPrecondition, Msg: fmt.Sprintf(format, args...)}
}

// Transientf builds a transient ToolError.
func Transientf(format string, args ...any) *ToolError {
	return &ToolError{Kind: KindTransient, Msg: fmt.Sprintf(format, args...)}
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
