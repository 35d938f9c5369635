package mysqlauth

import (
	"crypto/rsa"
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-sql-driver/mysqlauth/internal/crypto"
	"github.com/go-sql-driver/mysqlauth/internal/mechanism"
	"github.com/go-sql-driver/mysqlauth/internal/wire"
)

// Connection is the thin handle the façade (C6) operates on: the packet
// I/O collaborator plus the bits of connection state an auth attempt
// reads or, on change-user, atomically updates. Everything else a real
// driver tracks (result sets, prepared statements, the socket itself) is
// out of scope (§1) and lives in the caller.
type Connection struct {
	IO          wire.PacketIO
	TLSUpgrader wire.TLSUpgrader
	TLSConfig   *tls.Config

	ServerVersionNumeric uint32

	// IsUnixSocket marks a connection over a local UNIX-domain socket,
	// the other half of "secure transport" (§4.4.4's full-auth branch,
	// the Glossary's "TLS-protected socket or a local UNIX-domain
	// socket") alongside TLS. Grounded on the teacher's
	// `mc.cfg.TLS != nil || mc.cfg.Net == "unix"` check in its
	// caching_sha2_password continuation handler.
	IsUnixSocket bool

	User           string
	Password       []byte
	AuthPluginName string

	// AuthPluginData is the most recent salt the server supplied during
	// Connect; ChangeUser computes its first auth response over it.
	AuthPluginData []byte

	// clientCharset is resolved once (§4.6) and reused between the
	// optional SSLRequest and the HandshakeResponse that follows it.
	clientCharset byte

	// QueryExec, if set, lets ChangeUser restore the client charset with
	// a SET NAMES statement on servers older than 5.1.23 (§4.6). Query
	// execution itself is out of scope for this package (§1); this is
	// only an optional hook into whatever executor the caller already has.
	QueryExec func(query string) error

	Logger *log.Logger
}

// Connect implements run_connect_auth (§4.5/§4.6): optionally upgrades to
// TLS, then runs one auth attempt using the mechanism the greeting named.
// On success, conn.User/Password/AuthPluginName reflect the credentials
// and mechanism that actually succeeded (§3 invariant 3).
func Connect(conn *Connection, creds Credentials, greeting ServerGreeting, opts *SessionOptions) error {
	flags := connectCapabilityFlags(greeting.Capabilities, creds.Database != "", len(opts.ConnectAttrs) > 0)

	charset := resolveCharset(opts.ClientCharsetName, greeting.DefaultCharset)
	conn.clientCharset = charset

	serverSupportsTLS := greeting.Capabilities.Has(wire.ClientSSL)
	if _, err := maybeUpgradeToTLS(conn.IO, conn.TLSUpgrader, flags, opts.MaxPacketSize, charset, opts.TLSMode, serverSupportsTLS, conn.TLSConfig); err != nil {
		return err
	}
	secureTransport := (serverSupportsTLS && opts.TLSMode != TLSDisabled) || conn.IsUnixSocket

	pubKey, err := loadSHA2PublicKey(opts)
	if err != nil {
		return err
	}

	ctx := &mechanism.Context{
		UserName:                []byte(creds.User),
		Password:                creds.Password,
		AllowNativePasswords:    opts.AllowNativePasswords,
		AllowCleartextPasswords: opts.AllowCleartextPasswords,
		DefaultAuthProtocol:     opts.DefaultAuthProtocol,
		SecureTransport:         secureTransport,
		PubKey:                  pubKey,
		IO:                      conn.IO,
		Logger:                  conn.Logger,
	}

	at := &attempt{
		io:            conn.IO,
		mechanismName: greeting.ServerPluginName,
		salt:          greeting.AuthPluginData,
		firstCall:     true,
		ctx:           ctx,
	}

	err = at.run(func(authResponse []byte) error {
		resp := wire.HandshakeResponse41{
			Flags:         flags,
			MaxPacketSize: opts.MaxPacketSize,
			Charset:       charset,
			User:          creds.User,
			AuthResponse:  authResponse,
			Database:      creds.Database,
			Plugin:        at.mechanismName,
			ConnectAttrs:  opts.ConnectAttrs,
		}
		return conn.IO.WritePacket(resp.Encode())
	})
	if err != nil {
		return err
	}

	conn.User = creds.User
	conn.Password = creds.Password
	conn.AuthPluginName = at.finalMechanismName
	conn.AuthPluginData = at.salt
	return nil
}

// ChangeUser implements run_change_user_auth (§4.6): a full ChangeUser
// packet stands in for the HandshakeResponse, but the negotiation engine
// runs identically from there. silent is passed through for callers that
// suppress error reporting when probing.
func ChangeUser(conn *Connection, creds Credentials, silent bool) error {
	// Zero-value policy; use ChangeUserWithOptions to carry over the
	// RSA key source or cleartext/native opt-ins from the original Connect.
	return changeUser(conn, creds, silent, &SessionOptions{})
}

// ChangeUserWithOptions is ChangeUser with explicit session policy
// (RSA key source, cleartext/native opt-ins) instead of the zero value.
func ChangeUserWithOptions(conn *Connection, creds Credentials, silent bool, opts *SessionOptions) error {
	return changeUser(conn, creds, silent, opts)
}

func changeUser(conn *Connection, creds Credentials, silent bool, opts *SessionOptions) error {
	pubKey, err := loadSHA2PublicKey(opts)
	if err != nil {
		return err
	}

	io := wrapForDuplicateErrBug(conn.IO, conn.ServerVersionNumeric)

	ctx := &mechanism.Context{
		UserName:                []byte(creds.User),
		Password:                creds.Password,
		AllowNativePasswords:    opts.AllowNativePasswords,
		AllowCleartextPasswords: opts.AllowCleartextPasswords,
		DefaultAuthProtocol:     opts.DefaultAuthProtocol,
		SecureTransport:         conn.TLSConfig != nil || conn.IsUnixSocket,
		PubKey:                  pubKey,
		IO:                      io,
		Logger:                  conn.Logger,
	}

	at := &attempt{
		io:            io,
		mechanismName: conn.AuthPluginName,
		salt:          conn.AuthPluginData,
		firstCall:     true,
		ctx:           ctx,
	}

	err = at.run(func(authResponse []byte) error {
		cu := wire.ChangeUser{
			User:            creds.User,
			AuthResponse:    authResponse,
			Database:        creds.Database,
			Plugin:          at.mechanismName,
			HasCharset:      conn.ServerVersionNumeric >= 50123,
			Charset:         uint16(conn.clientCharset),
			HasConnectAttrs: len(opts.ConnectAttrs) > 0,
			ConnectAttrs:    opts.ConnectAttrs,
		}
		return io.WritePacket(cu.Encode())
	})
	if err != nil {
		if !silent && conn.Logger != nil {
			conn.Logger.Printf("change-user failed: %v", err)
		}
		return err
	}

	// Atomic swap (§4.6, §3 invariant 6): allocate new, then assign —
	// never observed empty mid-operation, and the old buffer is simply
	// dropped rather than freed first, since Go reclaims it via GC.
	newUser := creds.User
	newPassword := append([]byte(nil), creds.Password...)
	conn.User = newUser
	conn.Password = newPassword
	conn.AuthPluginName = at.finalMechanismName

	if conn.ServerVersionNumeric < 50123 && conn.QueryExec != nil {
		collation := defaultClientCollation
		for name, id := range collations {
			if id == conn.clientCharset {
				collation = name
				break
			}
		}
		charsetName, _, _ := strings.Cut(collation, "_")
		if err := conn.QueryExec(fmt.Sprintf("SET NAMES %s", charsetName)); err != nil {
			return newAuthError(KindServerError, fmt.Errorf("restoring charset after change-user: %w", err))
		}
	}
	return nil
}

// duplicateErrIO wraps a PacketIO to silently discard the extra ERR
// packet servers strictly between 5.1.13 and 5.1.18 send after a failed
// COM_CHANGE_USER (§9's "targeted workaround...guarded by the exact
// version range"). Every other response passes through untouched.
type duplicateErrIO struct {
	wire.PacketIO
	affected bool
}

func wrapForDuplicateErrBug(io wire.PacketIO, serverVersionNumeric uint32) wire.PacketIO {
	return &duplicateErrIO{PacketIO: io, affected: serverVersionNumeric > 50113 && serverVersionNumeric < 50118}
}

func (d *duplicateErrIO) ReadPacket() ([]byte, error) {
	data, err := d.PacketIO.ReadPacket()
	if err != nil {
		return nil, err
	}
	if d.affected && len(data) > 0 && data[0] == wire.RespErr {
		if _, discardErr := d.PacketIO.ReadPacket(); discardErr != nil {
			return nil, discardErr
		}
	}
	return data, nil
}

// connectCapabilityFlags builds the capability bitset flowed into
// HandshakeResponse41 (§6.4): always 4.1-protocol plus plugin auth and
// the secure-connection scramble shape, gated fields added only when the
// caller actually needs them.
func connectCapabilityFlags(serverCaps wire.CapabilityFlags, wantsDB, wantsConnectAttrs bool) wire.CapabilityFlags {
	flags := wire.ClientProtocol41 | wire.ClientSecureConnection | wire.ClientPluginAuth | wire.ClientLongPassword | wire.ClientTransactions
	if wantsDB {
		flags |= wire.ClientConnectWithDB
	}
	if wantsConnectAttrs && serverCaps.Has(wire.ClientConnectAttrs) {
		flags |= wire.ClientConnectAttrs
	}
	if serverCaps.Has(wire.ClientMultiStatements) {
		flags |= wire.ClientMultiStatements
	}
	if serverCaps.Has(wire.ClientMultiResults) {
		flags |= wire.ClientMultiResults
	}
	return flags
}

// loadSHA2PublicKey reads and parses SessionOptions.SHA2PublicKeyPath
// once, caching the result so repeated auth attempts on the same options
// value don't re-read the file (§6.5; §5's "PEM file read" suspension point).
func loadSHA2PublicKey(opts *SessionOptions) (*rsa.PublicKey, error) {
	if opts.SHA2PublicKeyPath == "" {
		return nil, nil
	}
	if opts.sha2PubKey != nil {
		return opts.sha2PubKey, nil
	}
	data, err := os.ReadFile(opts.SHA2PublicKeyPath)
	if err != nil {
		return nil, newAuthError(KindKeyUnavailable, fmt.Errorf("%w: %v", ErrKeyUnavailable, err))
	}
	key, err := crypto.ParseRSAPublicKeyPEM(data)
	if err != nil {
		return nil, newAuthError(KindKeyUnavailable, fmt.Errorf("parsing %s: %w", opts.SHA2PublicKeyPath, err))
	}
	opts.sha2PubKey = key
	return key, nil
}
