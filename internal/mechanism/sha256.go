package mechanism

import (
	"fmt"

	"github.com/go-sql-driver/mysqlauth/internal/crypto"
	"github.com/go-sql-driver/mysqlauth/internal/wire"
)

// sha256Plugin implements sha256_password (§4.4.3): cleartext over TLS,
// otherwise RSA-OAEP-encrypted over the server's public key (fetched
// from a local PEM file if configured, else requested over the wire).
type sha256Plugin struct{}

func init() { Register(&sha256Plugin{}) }

func (sha256Plugin) Name() string { return "sha256_password" }

func (sha256Plugin) InitialResponse(ctx *Context, salt []byte) ([]byte, error) {
	if len(ctx.Password) == 0 {
		return []byte{0}, nil
	}
	if ctx.SecureTransport {
		return append(append([]byte{}, ctx.Password...), 0), nil
	}
	if ctx.PubKey == nil {
		// Ask the server for its key; HandleServerMoreData below
		// completes the exchange once the PEM response arrives.
		return wire.RequestPublicKey, nil
	}
	return encryptAgainstSalt(ctx.PubKey, ctx.Password, salt)
}

// HandleServerMoreData receives the PEM-encoded public key the server
// sends in response to RequestPublicKey and completes the RSA exchange.
func (sha256Plugin) HandleServerMoreData(ctx *Context, body []byte, salt []byte) (MoreDataResult, error) {
	pubKey, err := crypto.ParseRSAPublicKeyPEM(body)
	if err != nil {
		return MoreDataResult{}, fmt.Errorf("parsing server public key: %w", err)
	}
	enc, err := encryptAgainstSalt(pubKey, ctx.Password, salt)
	if err != nil {
		return MoreDataResult{}, err
	}
	return MoreDataResult{Continue: enc}, nil
}
