// Package mechanism implements the registry (C3) and the credential
// mechanisms (C4) pluggable authentication is built from. Each mechanism
// registers itself from its own init(), mirroring the teacher's
// auth_*.go files each calling RegisterAuthPlugin from init() — the
// registry is populated once before the first connection and never
// mutated afterward, so the lookup path needs no locking (§5).
package mechanism

import (
	"crypto/rsa"
	"log"

	"github.com/go-sql-driver/mysqlauth/internal/sasl"
	"github.com/go-sql-driver/mysqlauth/internal/wire"
)

// MoreDataResult is what HandleServerMoreData hands back to the
// negotiation engine (§4.3's vtable contract).
type MoreDataResult struct {
	Done       bool   // true: wait for the terminal OK that should follow
	Continue   []byte // non-nil: write this as a further client payload and keep reading
	SwitchName string // non-empty: the server wants a full mechanism switch
	SwitchSalt []byte
}

// Context carries everything a mechanism needs to compute a response:
// the credential, capability-gated policy the caller configured, and the
// collaborators (packet I/O, logger) mechanisms that need extra round
// trips (RSA key fetch, SASL rounds) depend on.
type Context struct {
	UserName []byte
	Password []byte

	// AllowNativePasswords / AllowCleartextPasswords gate mechanisms
	// that would otherwise silently downgrade security; false makes
	// InitialResponse fail closed, matching the caller-configurable
	// guards the teacher exposes on its Config.
	AllowNativePasswords    bool
	AllowCleartextPasswords bool

	// SecureTransport is true when the connection is TLS-protected or a
	// local UNIX-domain socket (§4.4.4's "secure transport" term).
	SecureTransport bool

	// PubKey is a pre-loaded RSA key (from SessionOptions.SHA2PublicKeyPath);
	// nil means the mechanism must fetch it over the wire on demand.
	PubKey *rsa.PublicKey

	// DefaultAuthProtocol overrides DefaultMechanismName for the one-shot
	// fallback used when the server names a mechanism this driver has no
	// plugin for (§4.5).
	DefaultAuthProtocol string

	IO     wire.PacketIO
	Logger *log.Logger

	// saslSession holds in-progress state for authentication_ldap_sasl_client
	// across HandleServerMoreData calls; unexported since only ldap_sasl.go
	// in this package needs to see it.
	saslSession *sasl.Session
}

// Mechanism is the per-name credential driver vtable (§4.3/§4.4).
type Mechanism interface {
	Name() string

	// InitialResponse computes the first client payload from the
	// server's salt and the credentials in ctx. Returning (nil, nil)
	// means "send an empty response" (§3 invariant 4).
	InitialResponse(ctx *Context, salt []byte) ([]byte, error)
}

// StatefulMechanism is implemented by mechanisms whose server reply
// needs more than a terminal OK/ERR/AuthSwitch — caching_sha2_password's
// fast/full-path split and the LDAP SASL multi-round exchange (§4.3).
type StatefulMechanism interface {
	Mechanism
	HandleServerMoreData(ctx *Context, body []byte, salt []byte) (MoreDataResult, error)
}

var registry = map[string]Mechanism{}

// Register adds m to the process-wide registry. Intended to be called
// only from package init() functions (§5: no locking, no post-startup
// mutation).
func Register(m Mechanism) {
	registry[m.Name()] = m
}

// Lookup returns the mechanism registered under name, if any.
func Lookup(name string) (Mechanism, bool) {
	m, ok := registry[name]
	return m, ok
}

// DefaultMechanismName is substituted, once, when the server names a
// mechanism this driver does not have registered (§4.5).
const DefaultMechanismName = "mysql_native_password"
