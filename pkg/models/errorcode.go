package models

import (
	"errors"
	"fmt"
)

// BusinessErrorCode is the operator-facing code persisted with a processing
// error or evidence decision. The numbering is stable and documented for
// support staff; do not renumber.
type BusinessErrorCode string

const (
	// ErrCodeUnspecific covers failures with no more precise category.
	ErrCodeUnspecific BusinessErrorCode = "E100"
	// ErrCodeEvidenceIgnoredMessageRejected: evidence arrived for a message
	// already in the rejected state.
	ErrCodeEvidenceIgnoredMessageRejected BusinessErrorCode = "E101"
	// ErrCodeEvidenceIgnoredDuplicate: the occurrence bound for the evidence
	// type was already reached.
	ErrCodeEvidenceIgnoredDuplicate BusinessErrorCode = "E102"
	// ErrCodeEvidenceIgnoredHigherPriority: a higher-priority evidence already
	// decided the message state.
	ErrCodeEvidenceIgnoredHigherPriority BusinessErrorCode = "E103"
	// ErrCodeBackendRejection: the backend refused the message.
	ErrCodeBackendRejection BusinessErrorCode = "E200"
	// ErrCodeGatewayRejection: the gateway refused the message.
	ErrCodeGatewayRejection BusinessErrorCode = "E201"
	// ErrCodeDeliveryTimeout: no delivery evidence within the deadline.
	ErrCodeDeliveryTimeout BusinessErrorCode = "E300"
	// ErrCodeRelayTimeout: no RelayREMMD evidence within the deadline.
	ErrCodeRelayTimeout BusinessErrorCode = "E301"
	// ErrCodePartyUnreachable: the addressed party cannot be resolved.
	ErrCodePartyUnreachable BusinessErrorCode = "E404"
)

var businessErrorTexts = map[BusinessErrorCode]string{
	ErrCodeUnspecific:                     "unspecific processing error",
	ErrCodeEvidenceIgnoredMessageRejected: "evidence ignored, message already rejected",
	ErrCodeEvidenceIgnoredDuplicate:       "evidence ignored, maximum occurrence reached",
	ErrCodeEvidenceIgnoredHigherPriority:  "evidence ignored, superseded by higher priority evidence",
	ErrCodeBackendRejection:               "message rejected by backend",
	ErrCodeGatewayRejection:               "message rejected by gateway",
	ErrCodeDeliveryTimeout:                "delivery evidence timeout",
	ErrCodeRelayTimeout:                   "relay evidence timeout",
	ErrCodePartyUnreachable:               "party unreachable",
}

func (c BusinessErrorCode) Text() string {
	if t, ok := businessErrorTexts[c]; ok {
		return t
	}
	return businessErrorTexts[ErrCodeUnspecific]
}

// BusinessError carries the operator-facing code of a processing failure
// through the error chain, so the persisted error row keeps the category
// instead of collapsing everything to E100.
type BusinessError struct {
	Code BusinessErrorCode
	Err  error
}

func NewBusinessError(code BusinessErrorCode, err error) *BusinessError {
	return &BusinessError{Code: code, Err: err}
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Err)
}

func (e *BusinessError) Unwrap() error { return e.Err }

// ErrorCodeOf extracts the business code from anywhere in the chain,
// defaulting to the unspecific code.
func ErrorCodeOf(err error) BusinessErrorCode {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodeUnspecific
}
