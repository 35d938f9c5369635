package mechanism

import (
	"crypto/rsa"
	"fmt"

	"github.com/go-sql-driver/mysqlauth/internal/crypto"
	"github.com/go-sql-driver/mysqlauth/internal/wire"
)

// encryptAgainstSalt implements §4.1's "masked = (password||0x00) XOR
// salt; ciphertext = RSA-OAEP(masked)" construction, shared by
// sha256_password's full path and caching_sha2_password's full path.
func encryptAgainstSalt(pubKey *rsa.PublicKey, password, salt []byte) ([]byte, error) {
	masked := append(append([]byte{}, password...), 0)
	crypto.XORStreamInPlace(masked, salt)
	return crypto.RSAOAEPEncrypt(pubKey, masked)
}

// fetchServerPublicKey requests and parses the server's RSA public key
// over the wire (§4.4.3's "send a one-byte 0x01 request, read a
// public-key response packet, parse PEM"). The reply arrives wrapped in
// the same AuthMoreData framing as any other more-data round.
func fetchServerPublicKey(ctx *Context) (*rsa.PublicKey, error) {
	if err := ctx.IO.WritePacket(wire.RequestPublicKey); err != nil {
		return nil, fmt.Errorf("requesting server public key: %w", err)
	}
	reply, err := ctx.IO.ReadPacket()
	if err != nil {
		return nil, fmt.Errorf("reading server public key: %w", err)
	}
	resp, err := wire.ParseServerResponse(reply)
	if err != nil {
		return nil, fmt.Errorf("parsing server public key response: %w", err)
	}
	if resp.Kind != wire.RespKindMoreData {
		return nil, fmt.Errorf("unexpected packet type while expecting server public key")
	}
	return crypto.ParseRSAPublicKeyPEM(resp.AuthData)
}
