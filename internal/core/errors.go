package core

import (
	"fmt"
	"log"
)

// Error codes reported by the host side. 1000-1999 are filesystem errors.
const (
	CodeHomeDir   = 1000
	CodeCreateDir = 1001
	CodeStatDir   = 1002
	CodeDeleteDir = 1003
)

var errorMessages = map[int]string{
	CodeHomeDir:   "failed to resolve home directory",
	CodeCreateDir: "no permission to create directory",
	CodeStatDir:   "failed to read directory info",
	CodeDeleteDir: "failed to delete directory",
}

// CodedError is a host-side failure tagged with a numeric code.
type CodedError struct {
	Code    int
	Message string
	Err     error
}

// NewCodedError builds a CodedError for code, logs it, and wraps err.
func NewCodedError(code int, err error) *CodedError {
	msg, ok := errorMessages[code]
	if !ok {
		msg = "unknown error"
	}
	if err != nil {
		log.Printf("[ERROR] Code: %d, Message: %s, Original error: %v", code, msg, err)
	} else {
		log.Printf("[ERROR] Code: %d, Message: %s", code, msg)
	}
	return &CodedError{Code: code, Message: msg, Err: err}
}

func (e *CodedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Code: %d, Message: %s, Error: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("Code: %d, Message: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Err
}
