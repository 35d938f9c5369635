package mysqlauth

import (
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysqlauth/internal/crypto"
	"github.com/go-sql-driver/mysqlauth/internal/mechanism"
	"github.com/go-sql-driver/mysqlauth/internal/sasl"
	"github.com/go-sql-driver/mysqlauth/internal/wire"
)

// maxSwitchIterations bounds the auth-switch retry loop (§4.5: "an
// implementer may cap iterations for defence"); a compliant server never
// approaches this, a misbehaving one is cut off rather than looped forever.
const maxSwitchIterations = 4

// attempt is the negotiation state for one auth exchange (§3's
// "Negotiation state"): mutated in place across switches rather than
// modeled as a call stack, per §9's design note.
type attempt struct {
	io wire.PacketIO

	mechanismName string
	salt          []byte
	firstCall     bool

	ctx *mechanism.Context

	defaultFallbackUsed bool
	finalMechanismName  string
}

// run drives one auth attempt through SEND_INITIAL / RUN_MORE / FINAL_READ
// (§4.5) until a terminal PASS or FAIL. writeInitial sends either the
// HandshakeResponse41 (connect) or the full ChangeUser packet
// (change-user); on every subsequent switch it sends a bare
// AuthSwitchResponse instead, regardless of which entry point started
// the attempt.
func (a *attempt) run(writeInitial func(authResponse []byte) error) error {
	for i := 0; i < maxSwitchIterations; i++ {
		m, ok := mechanism.Lookup(a.mechanismName)
		if !ok {
			if a.firstCall && !a.defaultFallbackUsed {
				a.defaultFallbackUsed = true
				a.mechanismName = defaultMechanismName(a.ctx)
				m, ok = mechanism.Lookup(a.mechanismName)
			}
			if !ok {
				return errUnknownMechanism(a.mechanismName)
			}
		}

		resp, err := m.InitialResponse(a.ctx, a.salt)
		if err != nil {
			return wrapMechanismError(err)
		}

		if a.firstCall {
			if err := writeInitial(resp); err != nil {
				return newAuthError(KindTransportGone, fmt.Errorf("%w: %v", ErrTransportGone, err))
			}
			a.firstCall = false
		} else {
			if err := a.io.WritePacket(wire.EncodeAuthSwitchResponse(resp)); err != nil {
				return newAuthError(KindTransportGone, fmt.Errorf("%w: %v", ErrTransportGone, err))
			}
		}

		done, switchTo, err := a.runMore(m)
		if err != nil {
			return err
		}
		if done {
			a.finalMechanismName = a.mechanismName
			return nil
		}
		if switchTo == nil {
			// runMore already classified FAIL/ERR and returned it.
			continue
		}
		a.mechanismName = switchTo.name
		a.salt = switchTo.salt
	}
	return newAuthError(KindServerError, fmt.Errorf("auth-switch loop exceeded %d iterations", maxSwitchIterations))
}

type switchRequest struct {
	name string
	salt []byte
}

// runMore implements RUN_MORE then FINAL_READ for the current mechanism:
// read one packet, and while it's AuthMoreData for a stateful mechanism,
// keep feeding it to HandleServerMoreData and writing what comes back,
// until a terminal OK/ERR/AuthSwitch arrives.
func (a *attempt) runMore(m mechanism.Mechanism) (done bool, switchTo *switchRequest, err error) {
	for {
		raw, ioErr := a.io.ReadPacket()
		if ioErr != nil {
			return false, nil, newAuthError(KindTransportGone, fmt.Errorf("%w: %v", ErrTransportGone, ioErr))
		}
		resp, parseErr := wire.ParseServerResponse(raw)
		if parseErr != nil {
			return false, nil, newAuthError(KindUnknown, parseErr)
		}

		switch resp.Kind {
		case wire.RespKindOK:
			return true, nil, nil

		case wire.RespKindErr:
			return false, nil, errServer(resp.ErrNo, resp.SQLState, resp.Message)

		case wire.RespKindOldAuthSwitch:
			return false, nil, newAuthError(KindLegacyAuthRejected, ErrLegacyAuthRejected)

		case wire.RespKindAuthSwitch:
			return false, &switchRequest{name: resp.PluginName, salt: resp.AuthData}, nil

		case wire.RespKindMoreData:
			stateful, ok := m.(mechanism.StatefulMechanism)
			if !ok {
				return false, nil, newAuthError(KindUnknown, fmt.Errorf("mechanism %q sent AuthMoreData but has no handler", m.Name()))
			}
			result, moreErr := stateful.HandleServerMoreData(a.ctx, resp.AuthData, a.salt)
			if moreErr != nil {
				return false, nil, wrapMechanismError(moreErr)
			}
			if result.SwitchName != "" {
				return false, &switchRequest{name: result.SwitchName, salt: result.SwitchSalt}, nil
			}
			if result.Continue != nil {
				if err := a.io.WritePacket(wire.EncodeAuthSwitchResponse(result.Continue)); err != nil {
					return false, nil, newAuthError(KindTransportGone, fmt.Errorf("%w: %v", ErrTransportGone, err))
				}
				continue
			}
			if result.Done {
				continue // one more read: the terminal OK/ERR follows.
			}
			return false, nil, newAuthError(KindUnknown, fmt.Errorf("mechanism %q returned an empty more-data result", m.Name()))
		}
	}
}

func defaultMechanismName(ctx *mechanism.Context) string {
	if ctx.DefaultAuthProtocol != "" {
		return ctx.DefaultAuthProtocol
	}
	return mechanism.DefaultMechanismName
}

// wrapMechanismError classifies an error surfaced by a mechanism or one of
// its collaborators (internal/crypto, internal/sasl) into the right Kind
// (§7), so callers can branch on Kind instead of matching message text.
// Errors already shaped as *AuthError (such as the KindTransportGone
// errors built closer to the I/O) pass through unchanged.
func wrapMechanismError(err error) error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*AuthError); ok {
		return ae
	}

	var unsupported *sasl.UnsupportedMethodError
	switch {
	case errors.As(err, &unsupported):
		return errSaslUnsupported(unsupported.Method)
	case errors.Is(err, sasl.ErrAuthFailed):
		return newAuthError(KindSaslFailure, fmt.Errorf("%w: %v", ErrSaslFailure, err))
	case errors.Is(err, crypto.ErrPasswordTooLong):
		return newAuthError(KindPasswordTooLong, fmt.Errorf("%w: %v", ErrPasswordTooLong, err))
	case errors.Is(err, mechanism.ErrMalformedSalt):
		return newAuthError(KindMalformedSalt, fmt.Errorf("%w: %v", ErrMalformedSalt, err))
	default:
		return newAuthError(KindUnknown, err)
	}
}

// maybeUpgradeToTLS implements §4.6's "upgrade in place": a short
// SSLRequest carrying CLIENT_SSL plus the resolved charset, then an
// in-place TLS handshake via the upgrader collaborator.
func maybeUpgradeToTLS(io wire.PacketIO, upgrader wire.TLSUpgrader, flags wire.CapabilityFlags, maxPacketSize uint32, charset byte, tlsMode TLSMode, serverSupportsTLS bool, tlsConfig *tls.Config) (upgraded bool, err error) {
	if tlsMode == TLSDisabled {
		return false, nil
	}
	if !serverSupportsTLS {
		if tlsMode == TLSRequired {
			return false, newAuthError(KindTransportGone, fmt.Errorf("TLS required but not offered by server"))
		}
		return false, nil
	}

	req := wire.SSLRequest{
		Flags:         flags | wire.ClientSSL,
		MaxPacketSize: maxPacketSize,
		Charset:       charset,
	}
	if err := io.WritePacket(req.Encode()); err != nil {
		return false, newAuthError(KindTransportGone, fmt.Errorf("%w: %v", ErrTransportGone, err))
	}
	if err := upgrader.UpgradeToTLS(tlsConfig); err != nil {
		return false, newAuthError(KindTransportGone, fmt.Errorf("TLS upgrade failed: %w", err))
	}
	return true, nil
}
