package query

import "fmt"

// Code classifies validation failures for callers.
type Code string

const (
	CodeUnknownKind      Code = "UNKNOWN_QUERY_KIND"
	CodeInvalidParameter Code = "INVALID_PARAMETER"
)

// Error is a validation failure surfaced to the caller. It never wraps
// another error.
type Error struct {
	Code    Code   `json:"code"`
	Param   string `json:"param,omitempty"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Param, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func unknownKind(kind string) *Error {
	return &Error{Code: CodeUnknownKind, Message: fmt.Sprintf("unknown query kind %q", kind)}
}

func invalidParam(param, format string, args ...any) *Error {
	return &Error{Code: CodeInvalidParameter, Param: param, Message: fmt.Sprintf(format, args...)}
}
