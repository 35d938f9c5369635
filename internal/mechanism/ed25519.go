package mechanism

import (
	"crypto/sha512"

	"filippo.io/edwards25519"
)

// ed25519Plugin implements MariaDB's client_ed25519 mechanism. Built-in
// five per §4.4 plus this and parsec as supplemental mechanisms the
// spec's distillation dropped but MariaDB servers still negotiate.
//
// Derived from the MariaDB ref10 ed25519 signature routine; code shape
// follows stdlib crypto/ed25519's Sign.
type ed25519Plugin struct{}

func init() { Register(&ed25519Plugin{}) }

func (ed25519Plugin) Name() string { return "client_ed25519" }

func (ed25519Plugin) InitialResponse(ctx *Context, salt []byte) ([]byte, error) {
	if len(ctx.Password) == 0 {
		return nil, nil
	}

	h := sha512.Sum512(ctx.Password)

	s, err := edwards25519.NewScalar().SetBytesWithClamping(h[:32])
	if err != nil {
		return nil, err
	}
	a := (&edwards25519.Point{}).ScalarBaseMult(s)

	mh := sha512.New()
	mh.Write(h[32:])
	mh.Write(salt)
	messageDigest := mh.Sum(nil)
	r, err := edwards25519.NewScalar().SetUniformBytes(messageDigest)
	if err != nil {
		return nil, err
	}
	rPoint := (&edwards25519.Point{}).ScalarBaseMult(r)

	kh := sha512.New()
	kh.Write(rPoint.Bytes())
	kh.Write(a.Bytes())
	kh.Write(salt)
	hramDigest := kh.Sum(nil)
	k, err := edwards25519.NewScalar().SetUniformBytes(hramDigest)
	if err != nil {
		return nil, err
	}

	sig := k.MultiplyAdd(k, s, r)

	return append(rPoint.Bytes(), sig.Bytes()...), nil
}
