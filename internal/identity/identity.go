// Package identity provides the signing capabilities that back the
// authorization gate: a forwarded SSH agent, a local key, and a
// connect/disconnect toggle around either.
package identity

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/tomz197/ciphertower/internal/auth"
	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// ErrNoIdentity is returned by Sign when no identity is available.
var ErrNoIdentity = errors.New("no identity connected")

// Compile-time checks that the signers implement auth.Signer.
var (
	_ auth.Signer = (*Key)(nil)
	_ auth.Signer = (*Agent)(nil)
	_ auth.Signer = (*Toggle)(nil)
)

// Key signs with a private key held in process.
type Key struct {
	signer gossh.Signer
}

// NewKey wraps an existing SSH signer.
func NewKey(signer gossh.Signer) *Key {
	return &Key{signer: signer}
}

// NewEphemeralKey generates a fresh ed25519 identity.
func NewEphemeralKey() (*Key, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	signer, err := gossh.NewSignerFromKey(priv)
	if err != nil {
		return nil, fmt.Errorf("wrap key: %w", err)
	}
	return &Key{signer: signer}, nil
}

// Connected reports whether a key is loaded.
func (k *Key) Connected() bool {
	return k != nil && k.signer != nil
}

// Sign returns the SSH wire encoding of a signature over msg.
func (k *Key) Sign(_ context.Context, msg []byte) ([]byte, error) {
	if !k.Connected() {
		return nil, ErrNoIdentity
	}
	sig, err := k.signer.Sign(rand.Reader, msg)
	if err != nil {
		return nil, err
	}
	return gossh.Marshal(sig), nil
}

// PublicKey returns the public half of the key.
func (k *Key) PublicKey() gossh.PublicKey {
	return k.signer.PublicKey()
}

// Fingerprint returns the SHA256 fingerprint of the key.
func (k *Key) Fingerprint() string {
	return gossh.FingerprintSHA256(k.signer.PublicKey())
}

// DialFunc opens a connection to an ssh-agent.
type DialFunc func() (net.Conn, error)

// Agent signs through an ssh-agent, typically one forwarded by the
// player's SSH client. The agent prompts or refuses on its own terms.
type Agent struct {
	key  gossh.PublicKey
	dial DialFunc
}

// NewAgent creates a signer for key using the agent reachable via dial.
// A nil key or dial yields a signer that is never connected.
func NewAgent(key gossh.PublicKey, dial DialFunc) *Agent {
	return &Agent{key: key, dial: dial}
}

// Connected reports whether both an identity key and an agent are present.
func (a *Agent) Connected() bool {
	return a != nil && a.key != nil && a.dial != nil
}

// Sign asks the agent to sign msg with the session key.
func (a *Agent) Sign(ctx context.Context, msg []byte) ([]byte, error) {
	if !a.Connected() {
		return nil, ErrNoIdentity
	}
	conn, err := a.dial()
	if err != nil {
		return nil, fmt.Errorf("dial agent: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetDeadline(time.Now())
		case <-done:
		}
	}()

	sig, err := agent.NewClient(conn).Sign(a.key, msg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("agent sign: %w", err)
	}
	return gossh.Marshal(sig), nil
}

// Toggle lets the player connect or disconnect an identity at will.
// It starts connected when constructed with a non-nil signer.
type Toggle struct {
	inner     auth.Signer
	connected atomic.Bool
}

// NewToggle wraps inner.
func NewToggle(inner auth.Signer) *Toggle {
	t := &Toggle{inner: inner}
	t.connected.Store(inner != nil && inner.Connected())
	return t
}

// Connect re-enables the inner signer. It fails when the inner signer has
// no identity to offer.
func (t *Toggle) Connect() error {
	if t.inner == nil || !t.inner.Connected() {
		return ErrNoIdentity
	}
	t.connected.Store(true)
	return nil
}

// Disconnect disables signing.
func (t *Toggle) Disconnect() {
	t.connected.Store(false)
}

// Connected reports whether signing is currently enabled.
func (t *Toggle) Connected() bool {
	return t.connected.Load() && t.inner != nil && t.inner.Connected()
}

// Sign delegates to the inner signer while connected.
func (t *Toggle) Sign(ctx context.Context, msg []byte) ([]byte, error) {
	if !t.Connected() {
		return nil, ErrNoIdentity
	}
	return t.inner.Sign(ctx, msg)
}
