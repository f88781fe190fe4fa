package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/api"
	"github.com/dmitrijs2005/studiosign/internal/common"
)

// deviceDescriptor identifies the console as the capture environment.
const deviceDescriptor = "signctl (desktop console)"

// indirections used to facilitate testing
var (
	getSimpleText = GetSimpleText
	getCode       = GetCode
	getFields     = GetFields
	readFile      = os.ReadFile
)

// Sign drives one signing session: it shows the legal text, sends the code,
// uploads the signature strokes and verifies the code typed by the subject.
// Without "resign" an existing acceptance is reported instead.
func (a *App) Sign(ctx context.Context, args []string) error {
	const usage = usageError("sign <subject> <kind> [resign]")
	if len(args) < 2 || len(args) > 3 {
		return usage
	}
	resign := false
	if len(args) == 3 {
		if args[2] != "resign" {
			return usage
		}
		resign = true
	}
	subjectID, kind := args[0], strings.ToUpper(args[1])

	open, err := a.client.OpenSession(ctx, subjectID, kind, resign)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\n%s\n\n%s\n\n", open.Title, open.Text)

	if open.Existing != nil {
		fmt.Fprintf(a.out, "Already accepted on %s (%s). Use 'sign %s %s resign' to sign again.\n",
			formatTime(open.Existing.AcceptedAt), open.Existing.Method, subjectID, args[1])
		return nil
	}

	if open.Session == nil {
		return errors.New("server returned no session")
	}
	a.active = &activeSession{id: open.Session.ID, token: open.Token, subjectID: subjectID, kind: kind}

	if err := a.sendCode(ctx); err != nil {
		if errors.Is(err, common.ErrMissingChannelAddress) {
			_ = a.Abort(ctx, nil)
		}
		return err
	}

	if err := a.submitSignature(ctx); err != nil {
		return err
	}

	return a.verifyLoop(ctx)
}

func (a *App) sendCode(ctx context.Context) error {
	v, err := a.client.RequestCode(ctx, a.active.id, a.active.token)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Code sent to %s, valid until %s\n", v.MaskedAddress, formatTime(v.CodeExpiresAt))
	return nil
}

func (a *App) submitSignature(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Signature strokes file (JSON array of strokes of {x,y,t} points)", a.out)
	if err != nil {
		return err
	}

	data, err := readFile(path)
	if err != nil {
		return fmt.Errorf("read strokes: %w", err)
	}
	var strokes [][]api.Point
	if err := json.Unmarshal(data, &strokes); err != nil {
		return fmt.Errorf("parse strokes: %w", err)
	}

	if _, err := a.client.SubmitSignature(ctx, a.active.id, a.active.token, strokes, deviceDescriptor); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signature captured")
	return nil
}

func (a *App) verifyLoop(ctx context.Context) error {
	for {
		raw, err := getCode(a.out)
		if err != nil {
			return err
		}
		code := bytes.TrimSpace(raw)

		if len(code) == 0 {
			if err := a.sendCode(ctx); err != nil {
				return err
			}
			continue
		}

		res, err := a.client.Verify(ctx, a.active.id, a.active.token, string(code))
		common.WipeByteArray(raw)

		switch {
		case err == nil:
			a.active = nil
			if res.Record != nil {
				fmt.Fprintf(a.out, "Signed: record %s accepted at %s\n", res.Record.RecordID, formatTime(res.Record.AcceptedAt))
			} else {
				fmt.Fprintln(a.out, "Signed")
			}
			return nil
		case errors.Is(err, common.ErrCodeMismatch):
			fmt.Fprintln(a.out, "Wrong code, try again")
		case errors.Is(err, common.ErrCodeExpired):
			fmt.Fprintln(a.out, "Code expired, leave the code empty to send a new one")
		case errors.Is(err, common.ErrAttemptsExhausted), errors.Is(err, common.ErrSessionNotFound):
			a.active = nil
			return err
		default:
			return err
		}
	}
}

// Abort cancels the active signing session.
func (a *App) Abort(ctx context.Context, _ []string) error {
	if a.active == nil {
		return errors.New("no active signing session")
	}
	err := a.client.Abort(ctx, a.active.id, a.active.token)
	a.active = nil
	if err != nil && !errors.Is(err, common.ErrSessionNotFound) {
		return err
	}
	fmt.Fprintln(a.out, "Session aborted")
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("02/01/2006 15:04")
}
