// Package crypto collects the cryptographic primitives the MySQL
// authentication mechanisms build on: the two scramble hash families,
// XOR masking, RSA-OAEP password encryption and PEM public-key parsing.
//
// Keeping these in one place means every mechanism depends on a single
// crypto stack instead of re-deriving its own hashing glue, and lets the
// RSA-OAEP path be exercised once by tests instead of once per mechanism.
package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// ErrPasswordTooLong is returned by RSAOAEPEncrypt when the plaintext
// cannot fit under the key's modulus. Exported so the negotiation engine
// can classify it into the right AuthError Kind via errors.Is.
var ErrPasswordTooLong = errors.New("password is too long")

// SHA1 returns the 20-byte SHA-1 digest of data.
func SHA1(data ...[]byte) []byte {
	h := sha1.New()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// SHA256 returns the 32-byte SHA-256 digest of data.
func SHA256(data ...[]byte) []byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// XORBlock writes dst[i] = a[i] ^ b[i] for i in [0, n). Panics if a or b
// is shorter than n, matching the C primitive's unchecked-buffer contract.
func XORBlock(dst, a, b []byte, n int) {
	for i := 0; i < n; i++ {
		dst[i] = a[i] ^ b[i]
	}
}

// XORStreamInPlace XORs every byte of buf with key, cycling key via
// i mod len(key). It iterates len(buf) bytes; callers that need the
// trailing NUL terminator of a C-string password masked too (the RSA
// mechanisms do — see encryptAgainstSalt in internal/mechanism) must include
// that NUL in buf before calling this.
func XORStreamInPlace(buf, key []byte) {
	if len(key) == 0 {
		return
	}
	for i := range buf {
		buf[i] ^= key[i%len(key)]
	}
}

// minOAEPOverhead is 2*hashLen + 2 for SHA-1 (hashLen=20): the fixed
// overhead RSA-OAEP imposes on top of the plaintext.
const minOAEPOverhead = 2*sha1.Size + 2

// RSAOAEPEncrypt encrypts plaintext for pub using RSA-OAEP with SHA-1 as
// the OAEP hash, matching the padding scheme MySQL's RSA password
// mechanisms expect. Returns PasswordTooLong-shaped error if plaintext
// cannot fit under the key's modulus.
func RSAOAEPEncrypt(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	keySize := pub.Size()
	if keySize < len(plaintext)+minOAEPOverhead {
		return nil, ErrPasswordTooLong
	}
	return rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, plaintext, nil)
}

// ParseRSAPublicKeyPEM parses a PEM-encoded PKIX public key, the format
// both a locally configured key file and the server's wire response use.
func ParseRSAPublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("invalid PEM data for RSA public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing RSA public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("server public key is not RSA (got %T)", pub)
	}
	return rsaPub, nil
}
