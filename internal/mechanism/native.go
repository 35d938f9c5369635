package mechanism

import (
	"fmt"

	"github.com/go-sql-driver/mysqlauth/internal/crypto"
)

const nativeScrambleLen = 20

// nativePlugin implements mysql_native_password (§4.4.1), grounded on
// the teacher's auth_mysql_native.go scramblePassword.
type nativePlugin struct{}

func init() { Register(&nativePlugin{}) }

func (nativePlugin) Name() string { return "mysql_native_password" }

func (nativePlugin) InitialResponse(ctx *Context, salt []byte) ([]byte, error) {
	if !ctx.AllowNativePasswords {
		return nil, fmt.Errorf("mysql_native_password is disabled by configuration")
	}
	if len(ctx.Password) == 0 {
		return nil, nil
	}
	if len(salt) < nativeScrambleLen {
		return nil, ErrMalformedSalt
	}
	return scrambleNative(salt[:nativeScrambleLen], ctx.Password), nil
}

// scrambleNative computes SHA1(password) XOR SHA1(salt || SHA1(SHA1(password))).
func scrambleNative(salt, password []byte) []byte {
	stage1 := crypto.SHA1(password)
	stage2 := crypto.SHA1(stage1)
	scramble := crypto.SHA1(salt, stage2)
	out := make([]byte, len(scramble))
	crypto.XORBlock(out, scramble, stage1, len(scramble))
	return out
}
