package mechanism

import (
	"crypto/ed25519"
	"crypto/sha512"
	"errors"
	"testing"

	"golang.org/x/crypto/pbkdf2"
)

func TestParsecPluginInitialResponseIsEmpty(t *testing.T) {
	p := parsecPlugin{}
	got, err := p.InitialResponse(&Context{Password: []byte("secret")}, nil)
	if err != nil {
		t.Fatalf("InitialResponse: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want empty initial response, got %X", got)
	}
}

func TestParsecPluginSignatureVerifies(t *testing.T) {
	extSalt := append([]byte{'P', 0x00}, []byte("parsec-salt")...)
	serverScramble := []byte("server-scramble-bytes")

	p := parsecPlugin{}
	result, err := p.HandleServerMoreData(&Context{Password: []byte("secret")}, extSalt, serverScramble)
	if err != nil {
		t.Fatalf("HandleServerMoreData: %v", err)
	}
	if len(result.Continue) != 32+64 {
		t.Fatalf("want 32-byte nonce + 64-byte signature, got %d bytes", len(result.Continue))
	}

	clientNonce := result.Continue[:32]
	signature := result.Continue[32:]

	derivedKey := pbkdf2.Key([]byte("secret"), []byte("parsec-salt"), 1024, ed25519.SeedSize, sha512.New)
	pub := ed25519.NewKeyFromSeed(derivedKey).Public().(ed25519.PublicKey)

	message := append(append([]byte{}, serverScramble...), clientNonce...)
	if !ed25519.Verify(pub, message, signature) {
		t.Fatal("signature does not verify against the derived public key")
	}
}

func TestParsecPluginRejectsShortExtSalt(t *testing.T) {
	p := parsecPlugin{}
	_, err := p.HandleServerMoreData(&Context{Password: []byte("secret")}, []byte("Px"), nil)
	if err == nil || !errors.Is(err, ErrParsecAuth) {
		t.Fatalf("want ErrParsecAuth for short ext-salt, got %v", err)
	}
}

func TestParsecPluginRejectsBadPrefix(t *testing.T) {
	p := parsecPlugin{}
	_, err := p.HandleServerMoreData(&Context{Password: []byte("secret")}, []byte("Xsalt"), nil)
	if err == nil || !errors.Is(err, ErrParsecAuth) {
		t.Fatalf("want ErrParsecAuth for bad prefix, got %v", err)
	}
}

func TestParsecPluginRejectsBadIterationFactor(t *testing.T) {
	p := parsecPlugin{}
	extSalt := append([]byte{'P', 0x7f}, []byte("salt")...)
	_, err := p.HandleServerMoreData(&Context{Password: []byte("secret")}, extSalt, nil)
	if err == nil || !errors.Is(err, ErrParsecAuth) {
		t.Fatalf("want ErrParsecAuth for out-of-range iteration factor, got %v", err)
	}
}
