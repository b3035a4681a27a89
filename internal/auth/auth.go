// Package auth implements the signed-authorization gate that every decode
// of wave ciphertext must pass through.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomz197/ciphertower/internal/cipher"
	"golang.org/x/time/rate"
)

// ErrAuthorizationDenied is returned when no identity is connected or the
// identity refused to sign.
var ErrAuthorizationDenied = errors.New("authorization denied")

// Signer is the identity/session capability. Sign must produce a signature
// for msg under the connected identity or fail.
type Signer interface {
	Connected() bool
	Sign(ctx context.Context, msg []byte) ([]byte, error)
}

// Context holds the fields bound into the authorization message. It is
// built once per session and never modified afterwards.
type Context struct {
	PublicKey string
	Target    string
	Network   int64
	Start     time.Time
	Duration  time.Duration
}

// DurationDays returns the validity window in whole days.
func (c Context) DurationDays() int64 {
	return int64(c.Duration / (24 * time.Hour))
}

// BuildMessage returns the canonical message for ctx. Identical contexts
// yield byte-identical messages.
func BuildMessage(c Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "publickey:%s\n", c.PublicKey)
	fmt.Fprintf(&b, "contractAddresses:%s\n", c.Target)
	fmt.Fprintf(&b, "contractsChainId:%d\n", c.Network)
	fmt.Fprintf(&b, "startTimestamp:%d\n", c.Start.Unix())
	fmt.Fprintf(&b, "durationDays:%d", c.DurationDays())
	return b.String()
}

// Authorize asks signer to sign message. The signature is returned as is;
// it is not verified locally.
func Authorize(ctx context.Context, message string, signer Signer) ([]byte, error) {
	if signer == nil || !signer.Connected() {
		return nil, fmt.Errorf("%w: no connected identity", ErrAuthorizationDenied)
	}
	sig, err := signer.Sign(ctx, []byte(message))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthorizationDenied, err)
	}
	return sig, nil
}

// Authorizer composes message building, signing and decoding.
// It holds no per-call state, so concurrent DecryptGated calls are
// independent of each other.
type Authorizer struct {
	Scheme  cipher.Scheme
	Latency time.Duration // artificial wait between signing and decoding
	Limiter *rate.Limiter // optional throttle on signing prompts
}

// NewAuthorizer returns an Authorizer using scheme.
func NewAuthorizer(scheme cipher.Scheme, latency time.Duration) *Authorizer {
	return &Authorizer{Scheme: scheme, Latency: latency}
}

// DecryptGated decodes ciphertext after signer authorizes the message built
// from actx.
func (a *Authorizer) DecryptGated(ctx context.Context, ciphertext string, actx Context, signer Signer) (float64, error) {
	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("%w: too many signing requests: %v", ErrAuthorizationDenied, err)
		}
	}
	if _, err := Authorize(ctx, BuildMessage(actx), signer); err != nil {
		return 0, err
	}
	if a.Latency > 0 {
		timer := time.NewTimer(a.Latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		}
	}
	scheme := a.Scheme
	if scheme == nil {
		scheme = cipher.Tagged{}
	}
	return scheme.Decode(ciphertext)
}

// NewPublicKey returns "0x" followed by n random hex digits, the opaque key
// material bound into authorization messages.
func NewPublicKey(n int) (string, error) {
	raw := make([]byte, (n+1)/2)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate public key: %w", err)
	}
	return "0x" + hex.EncodeToString(raw)[:n], nil
}
