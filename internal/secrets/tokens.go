// Package secrets keeps upstream provider tokens in the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups the app's secrets in the OS keychain.
	KeyringService = "jobfeed"
)

var ErrEmptyAccount = errors.New("keyring account name is empty")

// Account namespaces a config token_account inside the keychain.
func Account(tokenAccount string) string {
	return "jobfeed:feed:" + strings.TrimSpace(tokenAccount)
}

// GetToken returns the stored token, or "" and a nil error when none exists.
func GetToken(tokenAccount string) (string, error) {
	if strings.TrimSpace(tokenAccount) == "" {
		return "", ErrEmptyAccount
	}
	tok, err := keyring.Get(KeyringService, Account(tokenAccount))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", tokenAccount, err)
	}
	return strings.TrimSpace(tok), nil
}

func SetToken(tokenAccount, token string) error {
	if strings.TrimSpace(tokenAccount) == "" {
		return ErrEmptyAccount
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, Account(tokenAccount), strings.TrimSpace(token))
}

// DeleteToken is a no-op when nothing is stored.
func DeleteToken(tokenAccount string) error {
	if strings.TrimSpace(tokenAccount) == "" {
		return ErrEmptyAccount
	}
	err := keyring.Delete(KeyringService, Account(tokenAccount))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasToken reports whether a token is stored, without returning it.
func HasToken(tokenAccount string) bool {
	tok, err := GetToken(tokenAccount)
	return err == nil && tok != ""
}
