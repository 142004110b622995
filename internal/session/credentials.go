// Package session stores per-identity API tokens in the system keyring and
// records which identity was last signed in.
package session

import (
	"fmt"

	"github.com/99designs/keyring"

	"github.com/craftlink/craftlink/internal/model"
)

const serviceName = "craftlink"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/craftlink/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("craftlink-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// tokenKey derives the keyring entry name for an identity. Role synonyms
// collapse so a company session finds the token stored for its user form.
func tokenKey(id model.Identity) string {
	return fmt.Sprintf("token.%s.%d", model.NormalizeRole(id.Role), id.UserID)
}

// Token retrieves the stored API token for an identity.
func Token(id model.Identity) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(tokenKey(id))
	if err != nil {
		return "", fmt.Errorf("getting token for %s/%d: %w", id.Role, id.UserID, err)
	}

	return string(item.Data), nil
}

// SaveToken stores the API token for an identity.
func SaveToken(id model.Identity, token string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  tokenKey(id),
		Data: []byte(token),
	})
	if err != nil {
		return fmt.Errorf("saving token for %s/%d: %w", id.Role, id.UserID, err)
	}

	return nil
}

// DeleteToken removes the stored API token for an identity.
func DeleteToken(id model.Identity) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(tokenKey(id))
	if err != nil {
		return fmt.Errorf("deleting token for %s/%d: %w", id.Role, id.UserID, err)
	}

	return nil
}
