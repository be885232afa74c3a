package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Vendor status codes.
const (
	CodeOK            = 0
	CodeSignInOK      = 200
	CodeDuplicateName = 5060
)

// ErrDuplicateName matches a ServiceError carrying CodeDuplicateName.
var ErrDuplicateName = errors.New("duplicate name exists")

// ServiceError is a response whose code is not the endpoint's success code.
// Codes are only meaningful by number, so they are surfaced verbatim.
type ServiceError struct {
	Endpoint string
	Code     int
	Message  string
	Raw      json.RawMessage
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: code %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s: code %d: %s", e.Endpoint, e.Code, e.Message)
}

func (e *ServiceError) Is(target error) bool {
	return target == ErrDuplicateName && e.Code == CodeDuplicateName
}

// TransportError is a connection, timeout or decoding failure. It is never
// retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode maps err onto the vendor status convention: 0 for success, the
// raw code for service errors and -1 for everything else.
func StatusCode(err error) int {
	if err == nil {
		return CodeOK
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return -1
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
