package identity

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"testing"

	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

func TestKeySignVerifies(t *testing.T) {
	k, err := NewEphemeralKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("publickey:0x1")
	raw, err := k.Sign(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	var sig gossh.Signature
	if err := gossh.Unmarshal(raw, &sig); err != nil {
		t.Fatalf("signature does not unmarshal: %v", err)
	}
	if err := k.PublicKey().Verify(msg, &sig); err != nil {
		t.Errorf("signature does not verify: %v", err)
	}
}

func TestAgentSign(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := gossh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	k := NewKey(signer)
	keyring := agent.NewKeyring()
	if err := keyring.Add(agent.AddedKey{PrivateKey: priv}); err != nil {
		t.Fatal(err)
	}

	dial := func() (net.Conn, error) {
		client, server := net.Pipe()
		go func() {
			_ = agent.ServeAgent(keyring, server)
			server.Close()
		}()
		return client, nil
	}

	a := NewAgent(k.PublicKey(), dial)
	if !a.Connected() {
		t.Fatal("agent signer not connected")
	}
	msg := []byte("hello")
	raw, err := a.Sign(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	var sig gossh.Signature
	if err := gossh.Unmarshal(raw, &sig); err != nil {
		t.Fatal(err)
	}
	if err := k.PublicKey().Verify(msg, &sig); err != nil {
		t.Errorf("agent signature does not verify: %v", err)
	}
}

func TestAgentWithoutForwarding(t *testing.T) {
	k, _ := NewEphemeralKey()
	a := NewAgent(k.PublicKey(), nil)
	if a.Connected() {
		t.Error("agent without dialer reports connected")
	}
	if _, err := a.Sign(context.Background(), []byte("m")); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("err = %v", err)
	}
}

func TestToggle(t *testing.T) {
	k, _ := NewEphemeralKey()
	tg := NewToggle(k)
	if !tg.Connected() {
		t.Fatal("toggle should start connected")
	}
	tg.Disconnect()
	if tg.Connected() {
		t.Fatal("still connected after Disconnect")
	}
	if _, err := tg.Sign(context.Background(), []byte("m")); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("sign while disconnected: %v", err)
	}
	if err := tg.Connect(); err != nil || !tg.Connected() {
		t.Errorf("Connect: %v", err)
	}

	empty := NewToggle(NewAgent(nil, nil))
	if err := empty.Connect(); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("connecting without identity: %v", err)
	}
}
