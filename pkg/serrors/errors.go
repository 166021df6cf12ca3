package serrors

import "fmt"

// BaseError is a coded sentinel error. Two BaseErrors match with errors.Is when their codes match.
type BaseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Hint is an optional operator-facing note; it is never sent to API clients.
	Hint string `json:"-"`
}

func NewError(code, message, hint string) *BaseError {
	return &BaseError{
		Code:    code,
		Message: message,
		Hint:    hint,
	}
}

func (e *BaseError) Error() string {
	return e.Message
}

func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *BaseError) String() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
