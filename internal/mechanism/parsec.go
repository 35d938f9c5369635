package mechanism

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// ErrParsecAuth wraps ext-salt validation failures for the parsec mechanism.
var ErrParsecAuth = errors.New("parsec: malformed ext-salt")

// parsecPlugin implements MariaDB's parsec mechanism: a PBKDF2-derived
// Ed25519 signing key over a server-supplied scramble, authenticated
// with a client-generated nonce. Supplemental to the spec's five
// built-ins, grounded on the teacher's auth_parsec.go.
type parsecPlugin struct{}

func init() { Register(&parsecPlugin{}) }

func (parsecPlugin) Name() string { return "parsec" }

// InitialResponse sends nothing: parsec's ext-salt arrives as the first
// AuthMoreData packet, handled below.
func (parsecPlugin) InitialResponse(ctx *Context, salt []byte) ([]byte, error) {
	return []byte{}, nil
}

// HandleServerMoreData receives the ext-salt (format: 'P' + iteration
// factor + salt) plus the server scramble, derives a PBKDF2-HMAC-SHA512
// key, signs serverScramble||clientNonce with the resulting Ed25519 key,
// and replies with clientNonce||signature.
func (parsecPlugin) HandleServerMoreData(ctx *Context, body []byte, salt []byte) (MoreDataResult, error) {
	resp, err := processParsecExtSalt(body, salt, ctx.Password)
	if err != nil {
		return MoreDataResult{}, fmt.Errorf("parsec auth failed: %w", err)
	}
	return MoreDataResult{Continue: resp}, nil
}

func processParsecExtSalt(extSalt, serverScramble, password []byte) ([]byte, error) {
	if len(extSalt) < 3 {
		return nil, fmt.Errorf("%w: ext-salt too short", ErrParsecAuth)
	}
	if extSalt[0] != 'P' {
		return nil, fmt.Errorf("%w: invalid ext-salt prefix", ErrParsecAuth)
	}

	iterationFactor := int(extSalt[1])
	if iterationFactor < 0 || iterationFactor > 3 {
		return nil, fmt.Errorf("%w: invalid iteration factor", ErrParsecAuth)
	}
	iterations := 1024 << iterationFactor

	saltBytes := extSalt[2:]
	if len(saltBytes) == 0 {
		return nil, fmt.Errorf("%w: empty salt", ErrParsecAuth)
	}

	clientNonce := make([]byte, 32)
	if _, err := rand.Read(clientNonce); err != nil {
		return nil, fmt.Errorf("generating client nonce: %w", err)
	}

	derivedKey := pbkdf2.Key(password, saltBytes, iterations, ed25519.SeedSize, sha512.New)

	message := make([]byte, 0, len(serverScramble)+len(clientNonce))
	message = append(message, serverScramble...)
	message = append(message, clientNonce...)

	privateKey := ed25519.NewKeyFromSeed(derivedKey[:ed25519.SeedSize])
	signature := ed25519.Sign(privateKey, message)

	resp := make([]byte, 0, len(clientNonce)+len(signature))
	resp = append(resp, clientNonce...)
	resp = append(resp, signature...)
	return resp, nil
}
