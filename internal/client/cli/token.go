package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/server/auth"
)

// devTokenValidity is the lifetime of tokens minted by DevToken.
const devTokenValidity = 12 * time.Hour

var generateToken = auth.GenerateToken

// Token installs an operator access token issued elsewhere.
func (a *App) Token(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("token <jwt>")
	}
	a.client.SetAccessToken(args[0])
	a.operator = "token"
	fmt.Fprintln(a.out, "Token set")
	return nil
}

// DevToken mints a token with the server secret from the local
// configuration. It is meant for development setups that share a .env file
// with the server.
func (a *App) DevToken(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usageError("devtoken <tenant> <operator> [admin]")
	}
	if a.config.SecretKey == "" {
		return errors.New("no secret key configured (-k or STUDIOSIGN_SECRET_KEY)")
	}

	p := auth.Principal{TenantID: args[0], OperatorID: args[1], Role: auth.RoleOperator}
	if len(args) == 3 {
		if args[2] != string(auth.RoleAdmin) {
			return usageError("devtoken <tenant> <operator> [admin]")
		}
		p.Role = auth.RoleAdmin
	}

	tok, err := generateToken(p, []byte(a.config.SecretKey), devTokenValidity)
	if err != nil {
		return err
	}
	a.client.SetAccessToken(tok)
	a.operator = p.OperatorID + "@" + p.TenantID
	fmt.Fprintf(a.out, "Logged in as %s (%s), token valid for %s\n", a.operator, p.Role, devTokenValidity)
	return nil
}

// Logout forgets the token. An active session is aborted first.
func (a *App) Logout(ctx context.Context, _ []string) error {
	if a.active != nil {
		_ = a.Abort(ctx, nil)
	}
	a.client.SetAccessToken("")
	a.operator = ""
	return nil
}
