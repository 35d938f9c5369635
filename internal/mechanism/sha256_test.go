package mechanism

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
	"testing"
)

func TestSHA256PluginEmptyPassword(t *testing.T) {
	p := sha256Plugin{}
	got, err := p.InitialResponse(&Context{}, make([]byte, 20))
	if err != nil {
		t.Fatalf("InitialResponse: %v", err)
	}
	if !bytes.Equal(got, []byte{0}) {
		t.Fatalf("got %X, want a single zero byte", got)
	}
}

func TestSHA256PluginSecureTransportSendsCleartextWithNUL(t *testing.T) {
	p := sha256Plugin{}
	got, err := p.InitialResponse(&Context{Password: []byte("secret"), SecureTransport: true}, make([]byte, 20))
	if err != nil {
		t.Fatalf("InitialResponse: %v", err)
	}
	want := append([]byte("secret"), 0)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %X, want %X", got, want)
	}
}

func TestSHA256PluginRequestsKeyWhenAbsent(t *testing.T) {
	p := sha256Plugin{}
	got, err := p.InitialResponse(&Context{Password: []byte("secret")}, make([]byte, 20))
	if err != nil {
		t.Fatalf("InitialResponse: %v", err)
	}
	if !bytes.Equal(got, []byte{0x01}) {
		t.Fatalf("got %X, want the public-key request byte", got)
	}
}

func TestSHA256PluginEncryptsWithPreloadedKey(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	p := sha256Plugin{}
	salt := make([]byte, 20)
	for i := range salt {
		salt[i] = byte(i + 1)
	}
	ciphertext, err := p.InitialResponse(&Context{Password: []byte("secret"), PubKey: &priv.PublicKey}, salt)
	if err != nil {
		t.Fatalf("InitialResponse: %v", err)
	}

	plaintext, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, priv, ciphertext, nil)
	if err != nil {
		t.Fatalf("DecryptOAEP: %v", err)
	}
	want := append(append([]byte{}, []byte("secret")...), 0)
	for i := range want {
		want[i] ^= salt[i%len(salt)]
	}
	if !bytes.Equal(plaintext, want) {
		t.Fatalf("decrypted masked password mismatch:\n got %X\nwant %X", plaintext, want)
	}
}

func TestSHA256PluginHandleServerMoreDataParsesPEMAndEncrypts(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	p := sha256Plugin{}
	salt := make([]byte, 20)
	result, err := p.HandleServerMoreData(&Context{Password: []byte("secret")}, pemBytes, salt)
	if err != nil {
		t.Fatalf("HandleServerMoreData: %v", err)
	}
	if len(result.Continue) == 0 {
		t.Fatal("want a non-empty ciphertext continuation")
	}
}

func TestSHA256PluginHandleServerMoreDataRejectsGarbagePEM(t *testing.T) {
	p := sha256Plugin{}
	_, err := p.HandleServerMoreData(&Context{Password: []byte("secret")}, []byte("not pem"), make([]byte, 20))
	if err == nil {
		t.Fatal("want error for garbage PEM, got nil")
	}
}
