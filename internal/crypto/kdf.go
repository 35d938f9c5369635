package crypto

import (
	"crypto/sha512"

	"github.com/xdg-go/stringprep"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2SHA512 derives keyLen bytes of key material from password and
// salt using PBKDF2-HMAC-SHA512, the KDF MariaDB's parsec plugin relies
// on. SCRAM derives its salted password with PBKDF2 over its own hash
// (SHA-1 or SHA-256) instead.
func PBKDF2SHA512(password, salt []byte, iterations, keyLen int) []byte {
	return pbkdf2.Key(password, salt, iterations, keyLen, sha512.New)
}

// SASLPrep normalizes a password per RFC 4013 before it is salted. Some
// servers accept passwords that don't fit the profile; callers should
// fall back to the raw password on error rather than fail the exchange
// outright (lib-pq's SCRAM client does the same).
func SASLPrep(password string) (string, error) {
	return stringprep.SASLprep.Prepare(password)
}
