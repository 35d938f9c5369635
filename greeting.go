package mysqlauth

import "github.com/go-sql-driver/mysqlauth/internal/wire"

// ServerGreeting is supplied by the handshake-greeting parser, which is
// explicitly out of scope for this package (§1, §6.2) — it only
// consumes the summary below.
type ServerGreeting struct {
	ServerVersionNumeric uint32
	Capabilities         wire.CapabilityFlags
	DefaultCharset       byte
	ThreadID             uint32

	// AuthPluginData is the "salt": typically 20 bytes for
	// mysql_native_password and caching_sha2_password; servers
	// sometimes report 21 with the trailing NUL included, which callers
	// should have already stripped before handing this to us.
	AuthPluginData []byte

	ServerPluginName string
}
