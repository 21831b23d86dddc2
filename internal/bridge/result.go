package bridge

// Status discriminates the three outcomes of a method call.
type Status int

const (
	// StatusSuccess carries the method's return value.
	StatusSuccess Status = iota
	// StatusError means the method ran and failed.
	StatusError
	// StatusNotImplemented means no such method exists.
	StatusNotImplemented
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusNotImplemented:
		return "not_implemented"
	default:
		return "unknown"
	}
}

// Error codes carried by StatusError results.
const (
	CodeInvalidArguments = "INVALID_ARGUMENTS"
	CodeWriteFailed      = "WRITE_FAILED"
	CodeScanFailed       = "SCAN_FAILED"
)

// CallError describes a failed call.
type CallError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *CallError) Error() string {
	return e.Code + ": " + e.Message
}

// Result is the reply to a MethodCall.
type Result struct {
	Status Status
	Value  any
	Err    *CallError
}

// Success wraps a return value.
func Success(v any) Result {
	return Result{Status: StatusSuccess, Value: v}
}

// Failure builds an error result.
func Failure(code, message string, details any) Result {
	return Result{Status: StatusError, Err: &CallError{Code: code, Message: message, Details: details}}
}

// NotImplemented is the reply to an unknown method.
func NotImplemented() Result {
	return Result{Status: StatusNotImplemented}
}
