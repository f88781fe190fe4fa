package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Token(ctx context.Context, args []string) error
	DevToken(ctx context.Context, args []string) error
	Subject(ctx context.Context, args []string) error
	Tenant(ctx context.Context, args []string) error
	Sign(ctx context.Context, args []string) error
	Abort(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	Fetch(ctx context.Context, args []string) error
	Paper(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
}

// runREPL starts a simple read-eval-print loop for the signctl console.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a' with the remaining tokens as arguments.
// The loop exits on EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
//	Not logged in:
//	  - help                                - show available commands
//	  - token <jwt>                         - use an operator access token
//	  - devtoken <tenant> <operator> [admin] - mint a development token
//	  - exit | quit                         - leave the program
//
//	Logged in:
//	  - tenant                              - set the studio name and contacts
//	  - subject [id]                        - create or update a subject
//	  - sign <subject> <kind> [resign]      - run a signing session
//	  - abort                               - abort the active session
//	  - (l)ist <subject>                    - consent overview
//	  - history <subject> <kind>            - acceptance history
//	  - download <subject> <kind>           - save the certificate PDF
//	  - fetch [url]                         - download the archived copy
//	  - paper <subject> <kind> <yyyy-mm-dd> - register a paper consent
//	  - logout                              - forget the token
//
// Handlers report their own errors through the returned error; the loop
// prints it and keeps going.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("signctl %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: tenant, subject, sign, abort, (l)ist, history, download, fetch, paper, logout, exit")
			} else {
				printlnFn("Available commands: token, devtoken, exit")
			}

		case "token":
			cmdErr = a.Token(ctx, args)

		case "devtoken":
			cmdErr = a.DevToken(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "tenant", "subject", "sign", "abort", "l", "list", "history", "download", "fetch", "paper", "logout":
			if !a.isLoggedIn() {
				printlnFn("Not logged in: use token or devtoken first")
				continue
			}
			cmdErr = dispatch(ctx, a, cmd, args)

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr.Error())
		}
		if err != nil {
			return
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "tenant":
		return a.Tenant(ctx, args)
	case "subject":
		return a.Subject(ctx, args)
	case "sign":
		return a.Sign(ctx, args)
	case "abort":
		return a.Abort(ctx, args)
	case "l", "list":
		return a.List(ctx, args)
	case "history":
		return a.History(ctx, args)
	case "download":
		return a.Download(ctx, args)
	case "fetch":
		return a.Fetch(ctx, args)
	case "paper":
		return a.Paper(ctx, args)
	case "logout":
		return a.Logout(ctx, args)
	}
	return nil
}

// usageError reports wrong arguments for a command.
type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }
