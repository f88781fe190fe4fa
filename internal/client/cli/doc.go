// Package cli provides signctl, the interactive operator console for the
// studiosign server.
//
// It wires configuration, the gRPC client and a small REPL. An operator
// authenticates with a JWT (token), maintains subjects (subject), drives a
// signing session end to end (sign), and works with the registry (list,
// history, download, fetch, paper). A background watcher pings the server
// health service and shows online/offline in the prompt.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
