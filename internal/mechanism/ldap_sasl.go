package mechanism

import (
	"fmt"

	"github.com/go-sql-driver/mysqlauth/internal/sasl"
)

// ldapSASLPlugin implements authentication_ldap_sasl_client (§4.4.5) on
// top of the pure-Go SCRAM driver in internal/sasl, rather than binding
// to a system SASL library (see §4.7's note on dropping Cyrus-SASL).
type ldapSASLPlugin struct{}

func init() { Register(&ldapSASLPlugin{}) }

func (ldapSASLPlugin) Name() string { return "authentication_ldap_sasl_client" }

// InitialResponse treats the salt field as the server's announcement of
// which SASL sub-mechanism to speak, per §4.4.5 step 1. The sub-mechanism
// name is validated by Session.Start itself (a *sasl.UnsupportedMethodError
// the negotiation engine classifies into KindSaslUnsupported), not
// duplicated here.
func (ldapSASLPlugin) InitialResponse(ctx *Context, salt []byte) ([]byte, error) {
	subMechanism := string(salt)
	session := sasl.NewSession("ldap", sasl.DefaultSecurityProps)
	out, err := session.Start(subMechanism, string(ctx.UserName), string(ctx.Password))
	if err != nil {
		return nil, err
	}
	ctx.saslSession = session
	return out, nil
}

// HandleServerMoreData drives the SASL step loop (§4.4.5): each
// AuthMoreData packet from the server is fed to Session.Step, and
// whatever it emits is sent back as a further AuthMoreData packet,
// until the session reports OK or FAIL. Packets are capped at
// sasl.MaxPacketSize, matching the protocol's AuthMoreData bound.
func (ldapSASLPlugin) HandleServerMoreData(ctx *Context, body []byte, salt []byte) (MoreDataResult, error) {
	if ctx.saslSession == nil {
		return MoreDataResult{}, fmt.Errorf("authentication_ldap_sasl_client: no SASL session in progress")
	}
	if len(body) > sasl.MaxPacketSize {
		return MoreDataResult{}, fmt.Errorf("SASL packet exceeds %d bytes", sasl.MaxPacketSize)
	}

	out, status, err := ctx.saslSession.Step(body)
	if err != nil {
		return MoreDataResult{}, fmt.Errorf("SASL step: %w", err)
	}

	switch status {
	case sasl.StatusOK:
		return MoreDataResult{Done: true}, nil
	case sasl.StatusFail:
		return MoreDataResult{}, fmt.Errorf("%w", sasl.ErrAuthFailed)
	default:
		if len(out) > sasl.MaxPacketSize {
			return MoreDataResult{}, fmt.Errorf("SASL response exceeds %d bytes", sasl.MaxPacketSize)
		}
		return MoreDataResult{Continue: out}, nil
	}
}
