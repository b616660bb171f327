package keyring

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/placebolab/coach/internal/constants"
)

var (
	// ErrNotFound is returned when no session tokens are stored in the keyring
	ErrNotFound = errors.New("session tokens not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Tokens is the persisted session pair. Both fields are opaque to the client.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// GetTokens retrieves the stored session tokens from the OS keyring.
// Returns ErrNotFound if no session is stored.
func GetTokens() (Tokens, error) {
	raw, err := keyring.Get(constants.AppName, constants.DefaultKeyringUser)
	if err != nil {
		if err == keyring.ErrNotFound {
			return Tokens{}, ErrNotFound
		}
		return Tokens{}, fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	var t Tokens
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return Tokens{}, fmt.Errorf("decode stored tokens: %w", err)
	}
	if t.Access == "" || t.Refresh == "" {
		return Tokens{}, ErrNotFound
	}
	return t, nil
}

// SetTokens stores the session token pair in the OS keyring.
func SetTokens(t Tokens) error {
	if t.Access == "" || t.Refresh == "" {
		return errors.New("both access and refresh tokens are required")
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	if err := keyring.Set(constants.AppName, constants.DefaultKeyringUser, string(raw)); err != nil {
		return fmt.Errorf("failed to store tokens in keyring: %w", err)
	}
	return nil
}

// DeleteTokens removes the stored session from the OS keyring.
func DeleteTokens() error {
	err := keyring.Delete(constants.AppName, constants.DefaultKeyringUser)
	if err != nil {
		if err == keyring.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete tokens from keyring: %w", err)
	}
	return nil
}

// IsAvailable checks if the OS keyring is available on the current system.
// Best-effort; a read that comes back ErrNotFound still means available.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || err == keyring.ErrNotFound
}
