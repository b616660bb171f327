package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/placebolab/coach/internal/constants"
)

// Validation errors are raised before any network call; the originating form
// stays editable and no state changes.
var (
	ErrEmailRequired       = errors.New("email is required")
	ErrPasswordRequired    = errors.New("password is required")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrTermsNotAccepted    = errors.New("terms must be accepted")
	ErrNoPracticeSelected  = errors.New("select at least one practice before generating a plan")
	ErrSlotCompleted       = errors.New("slot is already completed")
	ErrSlotOutsideWindow   = errors.New("slot can only be started during its time-of-day window")
	ErrAssessmentSubmitted = errors.New("assessment already submitted for this slot")
)

// ErrPasswordTooShort carries the configured floor so forms can show it.
type ErrPasswordTooShort struct {
	Min int
}

func (e ErrPasswordTooShort) Error() string {
	return fmt.Sprintf("password must be at least %d characters", e.Min)
}

// Login checks credentials locally before the login call is made.
func Login(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmailRequired
	}
	if password == "" {
		return ErrPasswordRequired
	}
	return nil
}

// Registration checks the register form locally. The password floor applies
// at registration only; existing accounts log in regardless of length.
func Registration(email, password, confirm string, termsAccepted bool) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmailRequired
	}
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < constants.MinPasswordLen {
		return ErrPasswordTooShort{Min: constants.MinPasswordLen}
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if !termsAccepted {
		return ErrTermsNotAccepted
	}
	return nil
}

// Rating checks a single assessment scale value.
func Rating(v int) error {
	if v < constants.RatingMin || v > constants.RatingMax {
		return fmt.Errorf("rating must be %d-%d, got %d", constants.RatingMin, constants.RatingMax, v)
	}
	return nil
}
