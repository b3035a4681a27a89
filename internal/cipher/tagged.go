package cipher

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// TaggedPrefix marks output of the Tagged scheme.
const TaggedPrefix = "FHE-"

// Tagged is the default scheme: the decimal form of the value, base64
// encoded and prefixed with TaggedPrefix.
type Tagged struct{}

// Compile-time check that Tagged implements Scheme.
var _ Scheme = Tagged{}

// Encode returns the tagged ciphertext for v.
func (Tagged) Encode(v float64) string {
	return TaggedPrefix + base64.StdEncoding.EncodeToString([]byte(formatValue(v)))
}

// Decode reverses Encode. Untagged input is parsed as a plain number.
func (Tagged) Decode(ciphertext string) (float64, error) {
	payload, ok := strings.CutPrefix(ciphertext, TaggedPrefix)
	if !ok {
		return parsePlain(ciphertext)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: bad payload: %v", ErrMalformedCiphertext, err)
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: payload is not a number", ErrMalformedCiphertext)
	}
	return v, nil
}
