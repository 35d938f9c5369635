package wire

// Client-to-server single-byte requests used by the RSA-encrypting
// mechanisms (§4.2): a bare 0x01 asks the server for its public key.
var RequestPublicKey = []byte{0x01}

// caching_sha2_password's AuthMoreData sub-states (§4.4.4).
const (
	FastAuthSuccess   = 0x03
	FullAuthRequired  = 0x04
	UnsolicitedServer = 0x02
)
