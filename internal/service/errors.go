package service

import "errors"

var (
	ErrInvalidContact    = errors.New("invalid contact")
	ErrInvalidOTPFormat  = errors.New("otp must be exactly 6 digits")
	ErrChallengeNotFound = errors.New("otp session not found")
	ErrOTPExpired        = errors.New("otp expired")
	ErrOTPInvalid        = errors.New("invalid otp")
	ErrRateLimited       = errors.New("too many otp attempts")
	ErrUserNotFound      = errors.New("user not found")
	ErrDeliveryFailure   = errors.New("failed to send otp")
	ErrStorageFailure    = errors.New("storage unavailable")
	ErrCredentialIssue   = errors.New("could not issue credential")
)

// IsValidationError indica si err corresponde a una entrada mal formada.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidContact) || errors.Is(err, ErrInvalidOTPFormat) || errors.Is(err, ErrInvalidPayment)
}
