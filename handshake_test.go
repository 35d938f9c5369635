package mysqlauth

import (
	"bytes"
	"crypto/tls"
	"testing"

	"github.com/go-sql-driver/mysqlauth/internal/wire"
)

type fakeUpgrader struct {
	called bool
	fail   bool
}

func (f *fakeUpgrader) UpgradeToTLS(cfg *tls.Config) error {
	f.called = true
	if f.fail {
		return errUpgradeFailed
	}
	return nil
}

var errUpgradeFailed = &AuthError{Kind: KindTransportGone}

func nativeGreeting(salt []byte) ServerGreeting {
	return ServerGreeting{
		ServerVersionNumeric: 80030,
		Capabilities:         wire.ClientProtocol41 | wire.ClientSecureConnection | wire.ClientPluginAuth,
		DefaultCharset:       33,
		AuthPluginData:       salt,
		ServerPluginName:     "mysql_native_password",
	}
}

func TestConnectNativeSuccessUpdatesConnection(t *testing.T) {
	salt := []byte("0123456789012345678A")[:20]
	io := &queueIO{toRead: [][]byte{okPacket()}}
	conn := &Connection{IO: io}
	creds := Credentials{User: "root", Password: []byte("secret")}
	opts := &SessionOptions{AllowNativePasswords: true}

	if err := Connect(conn, creds, nativeGreeting(salt), opts); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if conn.User != "root" {
		t.Fatalf("User = %q", conn.User)
	}
	if !bytes.Equal(conn.Password, []byte("secret")) {
		t.Fatalf("Password = %q", conn.Password)
	}
	if conn.AuthPluginName != "mysql_native_password" {
		t.Fatalf("AuthPluginName = %q", conn.AuthPluginName)
	}
	if len(io.written) != 1 {
		t.Fatalf("want exactly one HandshakeResponse41 write, got %d", len(io.written))
	}
}

func TestConnectFailureLeavesConnectionUntouched(t *testing.T) {
	io := &queueIO{toRead: [][]byte{errPacket()}}
	conn := &Connection{IO: io, User: "previous-user", AuthPluginName: "mysql_native_password"}
	creds := Credentials{User: "root", Password: []byte("secret")}
	opts := &SessionOptions{AllowNativePasswords: true}

	err := Connect(conn, creds, nativeGreeting(make([]byte, 20)), opts)
	if err == nil {
		t.Fatal("want error, got nil")
	}
	if conn.User != "previous-user" {
		t.Fatalf("Connect must not mutate Connection on failure; User = %q", conn.User)
	}
}

func TestConnectTLSRequiredButNotOfferedFails(t *testing.T) {
	io := &queueIO{}
	conn := &Connection{IO: io, TLSUpgrader: &fakeUpgrader{}}
	creds := Credentials{User: "root", Password: []byte("secret")}
	opts := &SessionOptions{TLSMode: TLSRequired}

	greeting := nativeGreeting(make([]byte, 20))
	greeting.Capabilities &^= wire.ClientSSL // server does not offer TLS

	err := Connect(conn, creds, greeting, opts)
	if err == nil {
		t.Fatal("want error when TLS is required but unavailable, got nil")
	}
	ae, ok := err.(*AuthError)
	if !ok || ae.Kind != KindTransportGone {
		t.Fatalf("got %#v, want AuthError{Kind: KindTransportGone}", err)
	}
}

func TestConnectTLSPreferredUpgradesWhenOffered(t *testing.T) {
	salt := make([]byte, 20)
	io := &queueIO{toRead: [][]byte{okPacket()}}
	upgrader := &fakeUpgrader{}
	conn := &Connection{IO: io, TLSUpgrader: upgrader, TLSConfig: &tls.Config{}}
	creds := Credentials{User: "root", Password: []byte("secret")}
	opts := &SessionOptions{TLSMode: TLSPreferred, AllowNativePasswords: true}

	greeting := nativeGreeting(salt)
	greeting.Capabilities |= wire.ClientSSL // server offers TLS

	if err := Connect(conn, creds, greeting, opts); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !upgrader.called {
		t.Fatal("want TLS upgrade to have been attempted")
	}
	// SSLRequest plus HandshakeResponse41: two writes total.
	if len(io.written) != 2 {
		t.Fatalf("want SSLRequest + HandshakeResponse41 writes, got %d", len(io.written))
	}
}

func TestChangeUserSwapsCredentialsAtomically(t *testing.T) {
	io := &queueIO{toRead: [][]byte{okPacket()}}
	conn := &Connection{
		IO:                   io,
		ServerVersionNumeric: 80030,
		User:                 "old-user",
		Password:             []byte("old-pass"),
		AuthPluginName:       "mysql_native_password",
		AuthPluginData:       make([]byte, 20),
	}
	newCreds := Credentials{User: "new-user", Password: []byte("new-pass")}

	if err := ChangeUserWithOptions(conn, newCreds, false, &SessionOptions{AllowNativePasswords: true}); err != nil {
		t.Fatalf("ChangeUser: %v", err)
	}
	if conn.User != "new-user" {
		t.Fatalf("User = %q, want new-user", conn.User)
	}
	if !bytes.Equal(conn.Password, []byte("new-pass")) {
		t.Fatalf("Password = %q", conn.Password)
	}
}

func TestChangeUserFailureLeavesOldCredentials(t *testing.T) {
	io := &queueIO{toRead: [][]byte{errPacket()}}
	conn := &Connection{
		IO:                   io,
		ServerVersionNumeric: 80030,
		User:                 "old-user",
		Password:             []byte("old-pass"),
		AuthPluginName:       "mysql_native_password",
	}
	newCreds := Credentials{User: "new-user", Password: []byte("new-pass")}

	err := ChangeUserWithOptions(conn, newCreds, true, &SessionOptions{AllowNativePasswords: true})
	if err == nil {
		t.Fatal("want error, got nil")
	}
	if conn.User != "old-user" {
		t.Fatalf("User changed despite failure: %q", conn.User)
	}
	if !bytes.Equal(conn.Password, []byte("old-pass")) {
		t.Fatalf("Password changed despite failure: %q", conn.Password)
	}
}

// TestChangeUserDiscardsDuplicateErrOnAffectedVersion reproduces the
// documented MariaDB/MySQL bug where a failed COM_CHANGE_USER on an
// affected server version sends the ERR packet twice.
func TestChangeUserDiscardsDuplicateErrOnAffectedVersion(t *testing.T) {
	io := &queueIO{toRead: [][]byte{errPacket(), errPacket()}}
	conn := &Connection{
		IO:                   io,
		ServerVersionNumeric: 50115, // strictly between 5.1.13 and 5.1.18
		User:                 "old-user",
		Password:             []byte("old-pass"),
		AuthPluginName:       "mysql_native_password",
		AuthPluginData:       make([]byte, 20),
	}
	newCreds := Credentials{User: "new-user", Password: []byte("new-pass")}

	err := ChangeUserWithOptions(conn, newCreds, true, &SessionOptions{AllowNativePasswords: true})
	if err == nil {
		t.Fatal("want error, got nil")
	}
	if len(io.toRead) != 0 {
		t.Fatalf("want both queued ERR packets consumed, %d left unread", len(io.toRead))
	}
}

func TestChangeUserDoesNotDiscardOnUnaffectedVersion(t *testing.T) {
	io := &queueIO{toRead: [][]byte{errPacket()}}
	conn := &Connection{
		IO:                   io,
		ServerVersionNumeric: 80030,
		User:                 "old-user",
		Password:             []byte("old-pass"),
		AuthPluginName:       "mysql_native_password",
		AuthPluginData:       make([]byte, 20),
	}
	newCreds := Credentials{User: "new-user", Password: []byte("new-pass")}

	err := ChangeUserWithOptions(conn, newCreds, true, &SessionOptions{AllowNativePasswords: true})
	if err == nil {
		t.Fatal("want error, got nil")
	}
	// A discard attempt would hit the empty queue and surface as
	// KindTransportGone instead of the server's ERR.
	ae, ok := err.(*AuthError)
	if !ok || ae.Kind != KindServerError {
		t.Fatalf("got %#v, want AuthError{Kind: KindServerError}", err)
	}
}

func TestConnectCapabilityFlagsAlwaysIncludesProtocol41(t *testing.T) {
	flags := connectCapabilityFlags(wire.CapabilityFlags(0), false, false)
	if !flags.Has(wire.ClientProtocol41) || !flags.Has(wire.ClientPluginAuth) {
		t.Fatalf("missing mandatory flags: %v", flags)
	}
	if flags.Has(wire.ClientConnectWithDB) {
		t.Fatal("ClientConnectWithDB must not be set when wantsDB is false")
	}
}

func TestConnectCapabilityFlagsGatesConnectAttrsOnServerSupport(t *testing.T) {
	flags := connectCapabilityFlags(wire.CapabilityFlags(0), false, true)
	if flags.Has(wire.ClientConnectAttrs) {
		t.Fatal("ClientConnectAttrs must not be set unless the server advertises it")
	}
	flags = connectCapabilityFlags(wire.ClientConnectAttrs, false, true)
	if !flags.Has(wire.ClientConnectAttrs) {
		t.Fatal("ClientConnectAttrs should be set once the server advertises it and the caller wants it")
	}
}

func TestLoadSHA2PublicKeyEmptyPathReturnsNil(t *testing.T) {
	key, err := loadSHA2PublicKey(&SessionOptions{})
	if err != nil {
		t.Fatalf("loadSHA2PublicKey: %v", err)
	}
	if key != nil {
		t.Fatalf("want nil key for empty path, got %v", key)
	}
}

func TestLoadSHA2PublicKeyMissingFileIsKeyUnavailable(t *testing.T) {
	_, err := loadSHA2PublicKey(&SessionOptions{SHA2PublicKeyPath: "/nonexistent/path/key.pem"})
	if err == nil {
		t.Fatal("want error for missing file, got nil")
	}
	ae, ok := err.(*AuthError)
	if !ok || ae.Kind != KindKeyUnavailable {
		t.Fatalf("got %#v, want AuthError{Kind: KindKeyUnavailable}", err)
	}
}
