package mechanism

import (
	"fmt"

	"github.com/go-sql-driver/mysqlauth/internal/crypto"
	"github.com/go-sql-driver/mysqlauth/internal/wire"
)

const sha2ScrambleLen = 20

// cachingSHA2Plugin implements caching_sha2_password (§4.4.4): a fast
// challenge-response path backed by the server's auth cache, falling
// back to sha256_password's full RSA/cleartext exchange on a cache miss.
type cachingSHA2Plugin struct{}

func init() { Register(&cachingSHA2Plugin{}) }

func (cachingSHA2Plugin) Name() string { return "caching_sha2_password" }

func (cachingSHA2Plugin) InitialResponse(ctx *Context, salt []byte) ([]byte, error) {
	if len(ctx.Password) == 0 {
		return nil, nil
	}
	if len(salt) < sha2ScrambleLen {
		return nil, ErrMalformedSalt
	}
	return scrambleCachingSHA2(salt[:sha2ScrambleLen], ctx.Password), nil
}

// HandleServerMoreData implements the fast-auth/full-auth split (§4.4.4
// table). On a cache miss (0x04) without a preloaded key, it performs the
// public-key round trip itself (write the request, read the wrapped PEM
// reply) before encrypting, mirroring how a single continuation callback
// drives the whole exchange in the teacher's plugin design.
func (cachingSHA2Plugin) HandleServerMoreData(ctx *Context, body []byte, salt []byte) (MoreDataResult, error) {
	if len(body) == 0 {
		return MoreDataResult{}, fmt.Errorf("empty auth more-data body")
	}
	switch body[0] {
	case wire.FastAuthSuccess:
		return MoreDataResult{Done: true}, nil

	case wire.FullAuthRequired:
		if ctx.SecureTransport {
			return MoreDataResult{Continue: append(append([]byte{}, ctx.Password...), 0)}, nil
		}

		pubKey := ctx.PubKey
		if pubKey == nil {
			fetched, err := fetchServerPublicKey(ctx)
			if err != nil {
				return MoreDataResult{}, err
			}
			pubKey = fetched
		}
		enc, err := encryptAgainstSalt(pubKey, ctx.Password, salt)
		if err != nil {
			return MoreDataResult{}, err
		}
		return MoreDataResult{Continue: enc}, nil

	case wire.UnsolicitedServer:
		if ctx.Logger != nil {
			ctx.Logger.Printf("caching_sha2_password: unsolicited server public key, ignoring")
		}
		return MoreDataResult{Done: true}, nil

	default:
		// An unrecognized status byte is a protocol violation, but not a
		// fatal one: warn and keep reading for the terminal OK/ERR rather
		// than aborting an otherwise-successful login.
		if ctx.Logger != nil {
			ctx.Logger.Printf("caching_sha2_password: unknown auth-more-data state %d", body[0])
		}
		return MoreDataResult{Done: true}, nil
	}
}

// scrambleCachingSHA2 computes SHA256(password) XOR
// SHA256(SHA256(SHA256(password)) || salt) — note the XOR order is
// mirrored from mysql_native_password (§4.4.4).
func scrambleCachingSHA2(salt, password []byte) []byte {
	stage1 := crypto.SHA256(password)
	stage2 := crypto.SHA256(stage1)
	scramble := crypto.SHA256(stage2, salt)
	out := make([]byte, len(scramble))
	crypto.XORBlock(out, stage1, scramble, len(scramble))
	return out
}
