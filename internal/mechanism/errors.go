package mechanism

import "errors"

// ErrMalformedSalt is returned by mechanisms that require a fixed-length
// scramble (mysql_native_password, caching_sha2_password) when the server's
// salt is shorter than that length. Exported so the negotiation engine can
// classify it into the right AuthError Kind via errors.Is.
var ErrMalformedSalt = errors.New("server sent wrong length for scramble")
