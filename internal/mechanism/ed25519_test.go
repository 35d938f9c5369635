package mechanism

import (
	"crypto/sha512"
	"testing"

	"filippo.io/edwards25519"
)

func TestEd25519PluginEmptyPassword(t *testing.T) {
	p := ed25519Plugin{}
	got, err := p.InitialResponse(&Context{}, []byte("some-salt"))
	if err != nil {
		t.Fatalf("InitialResponse: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want empty response, got %X", got)
	}
}

func TestEd25519PluginSignatureVerifies(t *testing.T) {
	p := ed25519Plugin{}
	salt := []byte("0123456789abcdef0123")
	sig, err := p.InitialResponse(&Context{Password: []byte("secret")}, salt)
	if err != nil {
		t.Fatalf("InitialResponse: %v", err)
	}
	if len(sig) != 64 {
		t.Fatalf("want a 64-byte R||S signature, got %d bytes", len(sig))
	}

	h := sha512.Sum512([]byte("secret"))
	s, err := edwards25519.NewScalar().SetBytesWithClamping(h[:32])
	if err != nil {
		t.Fatal(err)
	}
	a := (&edwards25519.Point{}).ScalarBaseMult(s)

	rBytes := sig[:32]
	sBytes := sig[32:]

	kh := sha512.New()
	kh.Write(rBytes)
	kh.Write(a.Bytes())
	kh.Write(salt)
	hramDigest := kh.Sum(nil)
	k, err := edwards25519.NewScalar().SetUniformBytes(hramDigest)
	if err != nil {
		t.Fatal(err)
	}

	sScalar, err := edwards25519.NewScalar().SetCanonicalBytes(sBytes)
	if err != nil {
		t.Fatal(err)
	}
	rPoint, err := (&edwards25519.Point{}).SetBytes(rBytes)
	if err != nil {
		t.Fatal(err)
	}

	// S*B should equal R + k*A; verify via S*B - k*A == R.
	sb := (&edwards25519.Point{}).ScalarBaseMult(sScalar)
	ka := (&edwards25519.Point{}).ScalarMult(k, a)
	negKA := (&edwards25519.Point{}).Negate(ka)
	check := (&edwards25519.Point{}).Add(sb, negKA)

	if check.Bytes()[0] != rPoint.Bytes()[0] {
		// byte-for-byte compare below is the real assertion; this branch
		// only exists so a gross mismatch fails fast with a clearer message.
		t.Fatalf("signature does not verify against R")
	}
	if string(check.Bytes()) != string(rPoint.Bytes()) {
		t.Fatalf("signature does not verify: S*B-k*A = %X, want R = %X", check.Bytes(), rPoint.Bytes())
	}
}
