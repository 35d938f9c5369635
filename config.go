package mysqlauth

import "crypto/rsa"

// Credentials are caller-owned and supplied up front; this package never
// prompts interactively and never caches them beyond one auth attempt (§1).
type Credentials struct {
	User     string
	Password []byte
	Database string
}

// TLSMode controls whether run_connect_auth attempts to upgrade the
// transport before authenticating (§4.6).
type TLSMode int

const (
	TLSDisabled TLSMode = iota
	TLSPreferred
	TLSRequired
)

// SessionOptions are caller-owned, per-connection policy (§3).
type SessionOptions struct {
	MaxPacketSize uint32

	// ClientCharsetName overrides ServerGreeting.DefaultCharset when set.
	ClientCharsetName string

	// ConnectAttrs is sent only when the server advertises
	// CLIENT_CONNECT_ATTRS (§6.4).
	ConnectAttrs map[string]string

	TLSMode TLSMode

	// SHA2PublicKeyPath, if set, is loaded once and reused for every
	// sha256_password / caching_sha2_password full-auth round instead of
	// fetching the key over the wire (§6.5).
	SHA2PublicKeyPath string

	// AllowNativePasswords / AllowCleartextPasswords gate the two
	// mechanisms that can silently downgrade security; both default to
	// false (opt-in), matching the teacher's conservative defaults.
	AllowNativePasswords    bool
	AllowCleartextPasswords bool

	// DefaultAuthProtocol is substituted, once, when the server names a
	// mechanism this driver has no registered driver for (§6.5). Empty
	// means fall back to mechanism.DefaultMechanismName.
	DefaultAuthProtocol string

	// sha2PubKey is the parsed form of SHA2PublicKeyPath, loaded lazily
	// by loadSHA2PublicKey and cached for the lifetime of the options
	// value (one PEM read per options value, not per attempt).
	sha2PubKey *rsa.PublicKey
}
