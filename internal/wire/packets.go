// Package wire encodes and decodes the four auth-related MySQL packet
// shapes (§4.2 / §6.3): HandshakeResponse41, ChangeUser, AuthSwitchResponse
// and AuthMoreData, plus the OK/ERR/EOF-as-AuthSwitch server replies that
// terminate or redirect one authentication attempt. It never touches the
// length-prefix/sequence-id framing: that belongs to the PacketIO
// collaborator (transport.go), which is supplied by the embedding driver.
package wire

import (
	"bytes"
	"fmt"
)

// Server response discriminators, the first byte of every packet read
// after a client auth payload.
const (
	RespOK          = 0x00
	RespEOF         = 0xfe
	RespErr         = 0xff
	RespAuthMore    = 0x01
	maxPacketFiller = 23
)

// HandshakeResponse41 describes the fields of the classic client
// authentication packet (§4.2). Database/Plugin/Attrs are included only
// when the corresponding capability bit is set by the caller via Flags.
type HandshakeResponse41 struct {
	Flags         CapabilityFlags
	MaxPacketSize uint32
	Charset       byte
	User          string
	AuthResponse  []byte
	Database      string
	Plugin        string
	ConnectAttrs  map[string]string
}

// Encode serializes the packet per §4.2's field layout. CLIENT_SECURE_CONNECTION
// is assumed set (4.1+ wire), so AuthResponse is always length-encoded
// rather than NUL-terminated.
func (h *HandshakeResponse41) Encode() []byte {
	buf := make([]byte, 0, 64+len(h.User)+len(h.AuthResponse)+len(h.Database)+len(h.Plugin))
	buf = appendUint32(buf, uint32(h.Flags))
	buf = appendUint32(buf, h.MaxPacketSize)
	buf = append(buf, h.Charset)
	buf = append(buf, make([]byte, maxPacketFiller)...)
	buf = append(buf, []byte(h.User)...)
	buf = append(buf, 0)
	buf = PutLengthEncodedString(buf, h.AuthResponse)

	if h.Flags.Has(ClientConnectWithDB) {
		buf = append(buf, []byte(h.Database)...)
		buf = append(buf, 0)
	}
	if h.Flags.Has(ClientPluginAuth) {
		buf = append(buf, []byte(h.Plugin)...)
		buf = append(buf, 0)
	}
	if h.Flags.Has(ClientConnectAttrs) {
		var attrs []byte
		for k, v := range h.ConnectAttrs {
			attrs = PutLengthEncodedString(attrs, []byte(k))
			attrs = PutLengthEncodedString(attrs, []byte(v))
		}
		buf = PutLengthEncodedInteger(buf, uint64(len(attrs)))
		buf = append(buf, attrs...)
	}
	return buf
}

// SSLRequest is the truncated HandshakeResponse41 header sent to trigger
// an in-place TLS upgrade before the real handshake response (§6.3).
type SSLRequest struct {
	Flags         CapabilityFlags
	MaxPacketSize uint32
	Charset       byte
}

// Encode returns the fixed 32-byte SSLRequest payload.
func (s *SSLRequest) Encode() []byte {
	buf := make([]byte, 0, 32)
	buf = appendUint32(buf, uint32(s.Flags))
	buf = appendUint32(buf, s.MaxPacketSize)
	buf = append(buf, s.Charset)
	buf = append(buf, make([]byte, maxPacketFiller)...)
	return buf
}

// ChangeUser describes the COM_CHANGE_USER packet (§4.2): a
// HandshakeResponse41 in spirit but with a leading command byte, an auth
// response prefixed by a single length byte (not a length-encoded
// integer), and an optional
// trailing charset for servers >= 5.1.23.
type ChangeUser struct {
	User            string
	AuthResponse    []byte
	Database        string
	Charset         uint16
	Plugin          string
	ConnectAttrs    map[string]string
	HasCharset      bool // server >= 5.1.23
	HasConnectAttrs bool // CLIENT_CONNECT_ATTRS negotiated
}

const comChangeUser = 0x11

// Encode serializes the COM_CHANGE_USER packet.
func (c *ChangeUser) Encode() []byte {
	buf := make([]byte, 0, 32+len(c.User)+len(c.AuthResponse)+len(c.Database))
	buf = append(buf, comChangeUser)
	buf = append(buf, []byte(c.User)...)
	buf = append(buf, 0)
	buf = append(buf, byte(len(c.AuthResponse)))
	buf = append(buf, c.AuthResponse...)
	buf = append(buf, []byte(c.Database)...)
	buf = append(buf, 0)

	if c.HasCharset {
		buf = append(buf, byte(c.Charset), byte(c.Charset>>8))
	}
	buf = append(buf, []byte(c.Plugin)...)
	buf = append(buf, 0)

	if c.HasConnectAttrs {
		var attrs []byte
		for k, v := range c.ConnectAttrs {
			attrs = PutLengthEncodedString(attrs, []byte(k))
			attrs = PutLengthEncodedString(attrs, []byte(v))
		}
		buf = PutLengthEncodedInteger(buf, uint64(len(attrs)))
		buf = append(buf, attrs...)
	}
	return buf
}

// EncodeAuthSwitchResponse wraps raw bytes for a bare AuthSwitchResponse:
// no header, no discriminator, no length-encoding (§4.2).
func EncodeAuthSwitchResponse(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

// ServerResponseKind enumerates what a post-auth-payload server packet
// means to the negotiation engine (§4.2/§4.5).
type ServerResponseKind int

const (
	RespKindOK ServerResponseKind = iota
	RespKindErr
	RespKindAuthSwitch
	RespKindOldAuthSwitch // 0xFE with no plugin name: the legacy sentinel
	RespKindMoreData
)

// ServerResponse is the parsed shape of a post-auth-payload packet.
type ServerResponse struct {
	Kind       ServerResponseKind
	PluginName string // RespKindAuthSwitch only
	AuthData   []byte // RespKindAuthSwitch (new salt) or RespKindMoreData (body)
	ErrNo      uint16 // RespKindErr only
	SQLState   string // RespKindErr only
	Message    string // RespKindErr only
}

// ParseServerResponse classifies a packet received after a client auth
// payload per §4.2's OK/ERR/EOF-as-AuthSwitch/AuthMoreData taxonomy.
func ParseServerResponse(data []byte) (*ServerResponse, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty server response packet")
	}
	switch data[0] {
	case RespOK:
		return &ServerResponse{Kind: RespKindOK}, nil
	case RespErr:
		return parseErrPacket(data)
	case RespEOF:
		return parseEOFAsAuthSwitch(data)
	case RespAuthMore:
		return &ServerResponse{Kind: RespKindMoreData, AuthData: data[1:]}, nil
	default:
		return nil, fmt.Errorf("malformed packet: unexpected leading byte 0x%02x", data[0])
	}
}

func parseErrPacket(data []byte) (*ServerResponse, error) {
	if len(data) < 3 {
		return nil, fmt.Errorf("malformed ERR packet")
	}
	errno := uint16(data[1]) | uint16(data[2])<<8
	rest := data[3:]
	sqlState := ""
	if len(rest) > 0 && rest[0] == '#' {
		if len(rest) < 6 {
			return nil, fmt.Errorf("malformed ERR packet: truncated SQLSTATE")
		}
		sqlState = string(rest[1:6])
		rest = rest[6:]
	}
	return &ServerResponse{
		Kind:     RespKindErr,
		ErrNo:    errno,
		SQLState: sqlState,
		Message:  string(rest),
	}, nil
}

// parseEOFAsAuthSwitch parses §4.2's EOF-as-AuthSwitch shape: a 0xFE byte
// followed by a NUL-terminated plugin name and the new salt. A 0xFE with
// no following bytes (len==1) is the legacy pre-4.1 sentinel (§4.5).
func parseEOFAsAuthSwitch(data []byte) (*ServerResponse, error) {
	if len(data) == 1 {
		return &ServerResponse{Kind: RespKindOldAuthSwitch}, nil
	}
	body := data[1:]
	idx := bytes.IndexByte(body, 0)
	if idx < 0 {
		return nil, fmt.Errorf("malformed auth switch packet: missing plugin name terminator")
	}
	plugin := string(body[:idx])
	authData := body[idx+1:]
	// A single trailing NUL on the salt is sometimes reported as part of
	// auth_plugin_data's length; strip it so callers see the raw salt.
	if len(authData) > 0 && authData[len(authData)-1] == 0 {
		authData = authData[:len(authData)-1]
	}
	saved := make([]byte, len(authData))
	copy(saved, authData)
	return &ServerResponse{Kind: RespKindAuthSwitch, PluginName: plugin, AuthData: saved}, nil
}

func appendUint32(dst []byte, n uint32) []byte {
	return append(dst, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
}
