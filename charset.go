package mysqlauth

// collations maps a client-configured charset/collation name to its
// numeric id for HandshakeResponse41's charset byte (§4.2). This is a
// practical subset of the server's collation table — the set actually
// negotiated by clients in the wild — not the full several-hundred-entry
// table the server ships; an unrecognized name falls back to the
// greeting's reported default rather than failing the handshake.
var collations = map[string]byte{
	"big5_chinese_ci":    1,
	"latin1_swedish_ci":  8,
	"ascii_general_ci":   11,
	"utf8_general_ci":    33,
	"binary":             63,
	"utf8mb4_general_ci": 45,
	"utf8mb4_unicode_ci": 224,
}

// defaultClientCollation is used when neither the caller nor the
// server's greeting offers a usable name, matching the teacher's
// long-standing default charset choice.
const defaultClientCollation = "utf8mb4_general_ci"

// resolveCharset implements §4.6's shared rule: a client-configured name
// takes priority; otherwise fall back to the server's reported default.
// Used identically for the SSLRequest and the subsequent HandshakeResponse
// so both packets advertise the same charset (§4.6).
func resolveCharset(clientCharsetName string, serverDefaultCharset byte) byte {
	if clientCharsetName != "" {
		if id, ok := collations[clientCharsetName]; ok {
			return id
		}
	}
	if serverDefaultCharset != 0 {
		return serverDefaultCharset
	}
	return collations[defaultClientCollation]
}
