package wire

import "crypto/tls"

// PacketIO is the framing-layer collaborator this module never
// implements itself (§6.1): it strips/adds the length-prefix and
// sequence byte that wrap every MySQL packet. ReadPacket returns the
// payload only; for packets whose first byte is a type discriminator
// (OK/ERR/EOF/AuthMoreData) that byte is included, but AuthSwitchResponse
// payloads carry no discriminator at all — the codecs in this package
// know which shape to expect from context, not from sniffing the bytes.
type PacketIO interface {
	ReadPacket() ([]byte, error)
	WritePacket(payload []byte) error
}

// TLSUpgrader upgrades an already-connected PacketIO in place, the
// collaborator invoked after a client sends SSLRequest (§6.1, §4.6).
type TLSUpgrader interface {
	UpgradeToTLS(cfg *tls.Config) error
}
