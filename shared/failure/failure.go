package failure

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure is a wrapper for error messages and codes using standard HTTP response codes.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var InvalidPageParam = &Failure{Code: http.StatusBadRequest, Message: "invalid page parameter"}
var InvalidLimitParam = &Failure{Code: http.StatusBadRequest, Message: "invalid limit parameter"}
var ChecksumMissingError = &Failure{Code: http.StatusBadRequest, Message: "checksum not found in response"}
var InvalidChecksumError = &Failure{Code: http.StatusBadRequest, Message: "invalid checksum"}
var AlreadyPaidError = &Failure{Code: http.StatusBadRequest, Message: "payment already completed for this booking"}

// Error returns the error code and message in a formatted string.
func (e *Failure) Error() string {
	return e.Message
}

// BadRequest returns a new Failure with code for bad requests.
func BadRequest(err error) error {
	if err != nil {
		return &Failure{
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		}
	}

	return nil
}

// BadRequestFromString returns a new Failure with code for bad requests with message set from string.
func BadRequestFromString(msg string) error {
	return &Failure{
		Code:    http.StatusBadRequest,
		Message: msg,
	}
}

// Unauthorized returns a new Failure with code for unauthorized requests.
func Unauthorized(msg string) error {
	return &Failure{
		Code:    http.StatusUnauthorized,
		Message: msg,
	}
}

// Forbidden returns a new Failure with code for forbidden requests.
func Forbidden(msg string) error {
	return &Failure{
		Code:    http.StatusForbidden,
		Message: msg,
	}
}

// InternalError returns a new Failure with code for internal error and message derived from an error interface.
func InternalError(err error) error {
	if err != nil {
		return &Failure{
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		}
	}

	return nil
}

// NotFound returns a new Failure with code for entity not found.
func NotFound(entityName string) error {
	return &Failure{
		Code:    http.StatusNotFound,
		Message: entityName + " not found",
	}
}

// Conflict returns a new Failure with code for conflict situations.
func Conflict(message string) error {
	return &Failure{
		Code:    http.StatusConflict,
		Message: message,
	}
}

// Gone returns a new Failure with code for resources that are no longer available.
func Gone(message string) error {
	return &Failure{
		Code:    http.StatusGone,
		Message: message,
	}
}

// InvalidTransition returns a new Failure for an illegal booking state transition,
// always naming both the current and the requested state.
func InvalidTransition(from, to string) error {
	return &Failure{
		Code:    http.StatusConflict,
		Message: fmt.Sprintf("invalid state transition from %s to %s", from, to),
	}
}

// WrongState returns a new Failure for a workflow invoked on a booking that is not
// in the state the workflow requires.
func WrongState(want, got string) error {
	return &Failure{
		Code:    http.StatusConflict,
		Message: fmt.Sprintf("booking must be in %s status, current: %s", want, got),
	}
}

// RefundFailed returns a new Failure carrying the gateway-provided refusal detail.
func RefundFailed(reason string) error {
	return &Failure{
		Code:    http.StatusBadGateway,
		Message: "refund failed: " + reason,
	}
}

// GetCode returns the error code of an error interface.
func GetCode(err error) int {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code
	}

	return http.StatusInternalServerError
}
