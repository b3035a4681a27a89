// Package cipher provides the reversible encodings that stand in for
// homomorphic ciphertext. None of the schemes are cryptographically sound;
// they only give wave descriptors an opaque, tagged form that must be
// decoded through the authorization gate.
package cipher

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedCiphertext is returned when input is neither a recognized
// ciphertext nor a plain number.
var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// ErrUnknownScheme is returned by ByName for unsupported scheme names.
var ErrUnknownScheme = errors.New("unknown cipher scheme")

// Scheme encodes numbers into opaque strings and back.
// Implementations must satisfy Decode(Encode(v)) == v for every finite v
// and be safe for concurrent use.
type Scheme interface {
	Encode(v float64) string
	Decode(ciphertext string) (float64, error)
}

// ByName returns the scheme called name: "tagged" (also the empty name)
// or "keyed". A keyed scheme without a secret gets a random one, so its
// ciphertexts only decode within the current process.
func ByName(name string, secret []byte) (Scheme, error) {
	switch strings.ToLower(name) {
	case "", "tagged":
		return Tagged{}, nil
	case "keyed":
		if len(secret) == 0 {
			secret = make([]byte, 32)
			if _, err := rand.Read(secret); err != nil {
				return nil, fmt.Errorf("generate secret: %w", err)
			}
		}
		return NewKeyed(secret), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}

// formatValue renders v in the shortest form that parses back to v exactly.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// parsePlain handles untagged input. Only a whole, well-formed number is
// accepted.
func parsePlain(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedCiphertext, preview(s))
	}
	return v, nil
}

// preview truncates long inputs for error messages.
func preview(s string) string {
	const max = 30
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
