// Package secrets seals and unseals library credentials with age X25519 keys.
//
// Sealed values are ASCII-armored age ciphertexts and can be pasted directly
// into the configuration file. The identity that opens them is read from a
// file at startup and never compiled into the binary.
package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// ErrNoIdentity is returned when a sealed value is found but no identity
// was loaded to open it.
var ErrNoIdentity = errors.New("sealed value requires an age identity")

// GenerateIdentity writes a new X25519 identity to path and returns its
// public recipient string. An existing file is never overwritten.
func GenerateIdentity(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("identity file already exists at %s", path)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating key pair: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("creating identity directory: %w", err)
	}

	recipient := identity.Recipient().String()
	content := fmt.Sprintf("# public key: %s\n%s\n", recipient, identity.String())
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("writing identity file: %w", err)
	}
	return recipient, nil
}

// LoadIdentities parses every identity in the file at path.
func LoadIdentities(path string) ([]age.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}
	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity file: %w", err)
	}
	return identities, nil
}

// RecipientForIdentities returns the recipient matching the first X25519
// identity, so that values can be sealed for the local key.
func RecipientForIdentities(identities []age.Identity) (age.Recipient, error) {
	for _, id := range identities {
		if x, ok := id.(*age.X25519Identity); ok {
			return x.Recipient(), nil
		}
	}
	return nil, fmt.Errorf("no X25519 identity found")
}

// ParseRecipient parses an "age1..." recipient string.
func ParseRecipient(s string) (age.Recipient, error) {
	r, err := age.ParseX25519Recipient(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parsing recipient: %w", err)
	}
	return r, nil
}

// Seal encrypts plaintext for recipient and returns the armored ciphertext.
func Seal(recipient age.Recipient, plaintext string) (string, error) {
	var buf bytes.Buffer
	armorWriter := armor.NewWriter(&buf)

	w, err := age.Encrypt(armorWriter, recipient)
	if err != nil {
		return "", fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("encrypting value: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encryption: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return "", fmt.Errorf("finalizing armor: %w", err)
	}
	return buf.String(), nil
}

// IsSealed reports whether value looks like an armored age ciphertext.
func IsSealed(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), armor.Header)
}

// Unsealer opens sealed values with a fixed set of identities.
type Unsealer struct {
	identities []age.Identity
}

// NewUnsealer creates an Unsealer. With no identities it passes plain
// values through and rejects sealed ones with ErrNoIdentity.
func NewUnsealer(identities ...age.Identity) *Unsealer {
	return &Unsealer{identities: identities}
}

// NewUnsealerFromFile loads the identity file at path. An empty path yields
// an Unsealer without identities.
func NewUnsealerFromFile(path string) (*Unsealer, error) {
	if path == "" {
		return NewUnsealer(), nil
	}
	identities, err := LoadIdentities(path)
	if err != nil {
		return nil, err
	}
	return NewUnsealer(identities...), nil
}

// Unseal returns value unchanged unless it is sealed, in which case it is
// decrypted.
func (u *Unsealer) Unseal(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if len(u.identities) == 0 {
		return "", ErrNoIdentity
	}

	r, err := age.Decrypt(armor.NewReader(strings.NewReader(strings.TrimSpace(value))), u.identities...)
	if err != nil {
		return "", fmt.Errorf("decrypting sealed value: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading sealed value: %w", err)
	}
	return string(plaintext), nil
}

// UnsealMap returns a copy of values with every sealed entry decrypted.
func (u *Unsealer) UnsealMap(values map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for k, v := range values {
		plain, err := u.Unseal(v)
		if err != nil {
			return nil, fmt.Errorf("option %s: %w", k, err)
		}
		out[k] = plain
	}
	return out, nil
}

// HasSealed reports whether any value in the map is sealed.
func HasSealed(values map[string]string) bool {
	for _, v := range values {
		if IsSealed(v) {
			return true
		}
	}
	return false
}
