package plaid

import (
	"errors"
	"fmt"
)

var (
	// ErrGateway marks every failure that originates at (or on the way to) Plaid.
	ErrGateway = errors.New("plaid gateway error")
	// ErrMalformedResponse is returned when a 200 body fails validation.
	ErrMalformedResponse = errors.New("malformed plaid response")
)

// Plaid error codes the relay reacts to.
const (
	ErrCodeMutationDuringPagination = "TRANSACTIONS_SYNC_MUTATION_DURING_PAGINATION"
	ErrCodeItemLoginRequired        = "ITEM_LOGIN_REQUIRED"
	ErrCodeInvalidAccessToken       = "INVALID_ACCESS_TOKEN"
)

// Error is the error object returned by the Plaid API on non-200 responses.
type Error struct {
	StatusCode     int    `json:"-"`
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("plaid error (status %d): %s %s - %s", e.StatusCode, e.ErrorType, e.ErrorCode, e.ErrorMessage)
}

func (e *Error) Unwrap() error {
	return ErrGateway
}

// IsErrorCode reports whether err carries a Plaid error with the given code.
func IsErrorCode(err error, code string) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.ErrorCode == code
	}
	return false
}
