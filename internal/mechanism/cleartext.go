package mechanism

import "fmt"

// clearPlugin implements mysql_clear_password (§4.4.2). It never
// refuses to operate over a non-TLS transport itself — ensuring TLS is
// active is the caller's responsibility (this mechanism exists only for
// PAM-style servers that require plaintext) — it only honors the
// caller's opt-in gate.
type clearPlugin struct{}

func init() { Register(&clearPlugin{}) }

func (clearPlugin) Name() string { return "mysql_clear_password" }

func (clearPlugin) InitialResponse(ctx *Context, salt []byte) ([]byte, error) {
	if !ctx.AllowCleartextPasswords {
		return nil, fmt.Errorf("mysql_clear_password is disabled by configuration")
	}
	if len(ctx.Password) == 0 {
		return nil, nil
	}
	return ctx.Password, nil
}
