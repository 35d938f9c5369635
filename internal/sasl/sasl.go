// Package sasl implements the client half of the SASL exchange used by
// MySQL/MariaDB's authentication_ldap_sasl_client plugin (§4.4.5, §4.7).
//
// The spec's C7 contract describes a thin wrapper over a C SASL library
// (Cyrus SASL's init/new_session/start/step shape). This module keeps
// that shape — Session.Start and Session.Step — but backs it with a
// pure-Go SCRAM client instead of binding libsasl2, since only
// SCRAM-SHA-1 and SCRAM-SHA-256 are in scope (GSSAPI is explicitly not
// supported despite the plugin name advertising it).
package sasl

import (
	"errors"
	"fmt"
)

// ErrAuthFailed wraps every protocol-level SCRAM failure (bad nonce,
// malformed server message, signature mismatch) so a caller can classify
// the whole family with errors.Is without matching individual message text.
var ErrAuthFailed = errors.New("sasl authentication failed")

// UnsupportedMethodError is returned by Start when the server-named
// sub-mechanism isn't one this SASL backend implements.
type UnsupportedMethodError struct{ Method string }

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("not supported SASL method: %s", e.Method)
}

// MaxPacketSize bounds every SASL round per §4.4.5.
const MaxPacketSize = 1518

// SecurityProps mirrors the Cyrus SASL sasl_security_properties_t the
// original driver configures: a minimum SSF floor and no requirement for
// mutual authentication beyond what SCRAM already provides.
type SecurityProps struct {
	MinSSF       int
	MaxSSF       int
	MutualAuthOK bool
}

// DefaultSecurityProps matches §4.4.5: min SSF 56, max 0, mutual auth not
// required (SCRAM verifies the server independently of this flag).
var DefaultSecurityProps = SecurityProps{MinSSF: 56, MaxSSF: 0, MutualAuthOK: false}

// Mechanism names as observed in the server-supplied "salt" field, the
// only two this driver's SASL driver resolves (§1 Non-goals, §4.4.5).
const (
	MechanismScramSHA1   = "SCRAM-SHA-1"
	MechanismScramSHA256 = "SCRAM-SHA-256"
)

// Status is the outcome of a SASL step, mirroring Cyrus SASL's
// SASL_OK/SASL_CONTINUE/SASL_FAIL trichotomy (§4.7).
type Status int

const (
	StatusContinue Status = iota
	StatusOK
	StatusFail
)

// Session is a single SASL client exchange, analogous to the handle
// returned by sasl_client_new in §4.7. It is created fresh per auth
// attempt and discarded after the terminal round (§3 Lifetimes).
type Session struct {
	scram *scramClient
}

// NewSession creates a session for service (always "ldap" per §4.4.5)
// with the given security properties. service/props are accepted to
// keep the call shape identical to the C API; this pure-Go backend does
// not need them beyond documenting intent, since SCRAM's security comes
// from the mechanism itself, not from a negotiated SSF layer.
func NewSession(service string, props SecurityProps) *Session {
	return &Session{}
}

// Start resolves interact callbacks to user/password and begins the
// named sub-mechanism, returning the client's first outbound blob
// (§4.4.5 step 2). Only SCRAM-SHA-1 and SCRAM-SHA-256 are recognized.
func (s *Session) Start(mechanismName, user, password string) ([]byte, error) {
	switch mechanismName {
	case MechanismScramSHA1, MechanismScramSHA256:
		s.scram = newSCRAMClient(mechanismName, user, password)
		return s.scram.clientFirstMessage(), nil
	default:
		return nil, &UnsupportedMethodError{Method: mechanismName}
	}
}

// Step feeds the server's latest blob to the running exchange and
// returns the client's next outbound blob (if any), or a terminal
// Status once the server has confirmed or refused the exchange.
func (s *Session) Step(serverBlob []byte) (out []byte, status Status, err error) {
	if s.scram == nil {
		return nil, StatusFail, fmt.Errorf("sasl: Step called before Start")
	}
	return s.scram.step(serverBlob)
}
