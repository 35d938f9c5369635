// Package mysqlauth implements client-side pluggable authentication for
// the MySQL wire protocol: the negotiation that runs immediately after
// the initial handshake greeting and leaves a connection ready for
// ordinary query traffic. Transport framing, TLS establishment, and
// query execution are collaborators this package only calls into
// through the interfaces in the wire subpackage.
package mysqlauth

import (
	"errors"
	"fmt"
)

// Kind classifies an AuthError for callers that want to branch on the
// failure mode (§7) rather than match error strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnknownMechanism
	KindMalformedSalt
	KindLegacyAuthRejected
	KindPasswordTooLong
	KindKeyUnavailable
	KindTransportGone
	KindServerError
	KindSaslUnsupported
	KindSaslFailure
	KindOutOfMemory
)

func (k Kind) String() string {
	switch k {
	case KindUnknownMechanism:
		return "UnknownMechanism"
	case KindMalformedSalt:
		return "MalformedSalt"
	case KindLegacyAuthRejected:
		return "LegacyAuthRejected"
	case KindPasswordTooLong:
		return "PasswordTooLong"
	case KindKeyUnavailable:
		return "KeyUnavailable"
	case KindTransportGone:
		return "TransportGone"
	case KindServerError:
		return "ServerError"
	case KindSaslUnsupported:
		return "SaslUnsupported"
	case KindSaslFailure:
		return "SaslFailure"
	case KindOutOfMemory:
		return "OutOfMemory"
	default:
		return "Unknown"
	}
}

// AuthError is the error type every exported entry point returns on
// failure. Kind lets callers branch without string matching; Err carries
// the underlying cause (a sentinel below, or a wrapped collaborator
// error) for %w-based unwrapping.
type AuthError struct {
	Kind Kind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

func newAuthError(kind Kind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}

// Sentinel causes wrapped into AuthError.Err so callers (and this
// package's own error-path tests) can errors.Is against a stable value
// independent of the formatted message (§7).
var (
	ErrLegacyAuthRejected = errors.New("the MySQL server is requesting the legacy and insecure old password scheme; upgrade the stored password hash on the server")
	ErrKeyUnavailable     = errors.New("sha256 server public key is not set")
	ErrPasswordTooLong    = errors.New("password is too long")
	ErrMalformedSalt      = errors.New("server sent wrong length for scramble")
	ErrTransportGone      = errors.New("the MySQL server has gone away")
	ErrSaslFailure        = errors.New("sasl authentication failed")
)

func errUnknownMechanism(name string) *AuthError {
	return newAuthError(KindUnknownMechanism, fmt.Errorf("server requested authentication method unknown to the client [%s]", name))
}

func errServer(errno uint16, sqlState, message string) *AuthError {
	return newAuthError(KindServerError, fmt.Errorf("errno %d (%s): %s", errno, sqlState, message))
}

func errSaslUnsupported(method string) *AuthError {
	return newAuthError(KindSaslUnsupported, fmt.Errorf("not supported SASL method: %s", method))
}
