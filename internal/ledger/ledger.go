// Package ledger answers the read-only questions the engine asks of the
// backing service: which target the authorization is bound to, on which
// network, and whether waves may currently be started.
package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"sync/atomic"

	"lukechampine.com/blake3"
)

// ErrUnavailable is returned by lookups while the ledger is offline.
var ErrUnavailable = errors.New("ledger unavailable")

// Ledger is the backing service lookup.
type Ledger interface {
	Target(ctx context.Context) (string, error)
	Network(ctx context.Context) (int64, error)
	Available(ctx context.Context) (bool, error)
}

// DefaultNetwork is the network identifier used when none is configured.
const DefaultNetwork int64 = 11155111

// Local is an in-process ledger. Its target identifier is derived from a
// name, so every process configured with the same name agrees on it.
type Local struct {
	target  string
	network int64
	open    atomic.Bool
	online  atomic.Bool
}

// Compile-time check that Local implements Ledger.
var _ Ledger = (*Local)(nil)

// NewLocal creates an online, open ledger for name on network.
func NewLocal(name string, network int64) *Local {
	l := &Local{
		target:  DeriveTarget(name),
		network: network,
	}
	l.open.Store(true)
	l.online.Store(true)
	return l
}

// DeriveTarget returns a 20-byte, 0x-prefixed identifier for name.
func DeriveTarget(name string) string {
	sum := blake3.Sum256([]byte("ciphertower/target/" + name))
	return "0x" + hex.EncodeToString(sum[:20])
}

// Target returns the target identifier.
func (l *Local) Target(_ context.Context) (string, error) {
	if !l.online.Load() {
		return "", ErrUnavailable
	}
	return l.target, nil
}

// Network returns the network identifier.
func (l *Local) Network(_ context.Context) (int64, error) {
	if !l.online.Load() {
		return 0, ErrUnavailable
	}
	return l.network, nil
}

// Available reports whether waves may be started.
func (l *Local) Available(_ context.Context) (bool, error) {
	if !l.online.Load() {
		return false, ErrUnavailable
	}
	return l.open.Load(), nil
}

// SetOpen opens or closes wave starts without taking the ledger offline.
func (l *Local) SetOpen(open bool) {
	l.open.Store(open)
}

// SetOnline makes every lookup fail while false.
func (l *Local) SetOnline(online bool) {
	l.online.Store(online)
}
