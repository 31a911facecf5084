// Package keyring keeps rhythm's secrets in the OS keyring.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/rhythm/internal/constants"
)

var (
	ErrNotFound           = errors.New("secret not found in keyring")
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Secret names one stored credential.
type Secret string

const (
	RemoteDSN   Secret = constants.KeyringRemoteDSNUser
	AdvisoryKey Secret = constants.KeyringAdvisoryKeyUser
)

// Secrets lists every credential rhythm may store.
var Secrets = []Secret{RemoteDSN, AdvisoryKey}

// ParseSecret maps a user-facing name to a Secret.
func ParseSecret(name string) (Secret, error) {
	for _, s := range Secrets {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown secret %q (expected one of %v)", name, Secrets)
}

func Get(secret Secret) (string, error) {
	value, err := keyring.Get(constants.AppName, string(secret))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return value, nil
}

func Set(secret Secret, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", secret)
	}
	if err := keyring.Set(constants.AppName, string(secret), value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", secret, err)
	}
	return nil
}

func Delete(secret Secret) error {
	if err := keyring.Delete(constants.AppName, string(secret)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", secret, err)
	}
	return nil
}

// Lookup returns the stored secret, or fallback when the keyring has none
// or cannot be reached.
func Lookup(secret Secret, fallback string) string {
	value, err := Get(secret)
	if err != nil {
		return fallback
	}
	return value
}

// IsAvailable is a best-effort probe of the OS keyring.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "availability-probe")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
