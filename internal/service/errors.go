package service

import (
	"errors"
	"fmt"

	"viralpik/asset-service/internal/domain"
)

// --- Error Definitions ---
var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrPaymentRequired  = errors.New("purchase required")
	ErrQuotaExceeded    = errors.New("daily download limit reached")
	ErrNotFound         = errors.New("not found")
	ErrPayloadTooLarge  = errors.New("file too large")
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrForbidden        = errors.New("forbidden")
	ErrRecordingFailed  = errors.New("failed to record download")
	ErrUploadURLError   = errors.New("failed to generate upload URL")
	ErrDownloadURLError = errors.New("failed to generate download URL")
)

// QuotaExceededError carries the numbers shown to a user who hit the limit.
type QuotaExceededError struct {
	DailyCount int
	Limit      int
	Tier       domain.Tier
}

func (e *QuotaExceededError) Error() string {
	return ErrQuotaExceeded.Error()
}

// Message is the human-readable explanation returned to the client.
func (e *QuotaExceededError) Message() string {
	return fmt.Sprintf("You have used %d of %d downloads today on the %s plan. Upgrade for more downloads or come back tomorrow.",
		e.DailyCount, e.Limit, e.Tier)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// PaymentRequiredError is returned for priced packages the requester does not own.
type PaymentRequiredError struct {
	Price float64
}

func (e *PaymentRequiredError) Error() string {
	return ErrPaymentRequired.Error()
}

func (e *PaymentRequiredError) Is(target error) bool {
	return target == ErrPaymentRequired
}

// InvalidRequestError names the offending field.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return e.Reason
}

func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func invalid(reason string) error {
	return &InvalidRequestError{Reason: reason}
}
