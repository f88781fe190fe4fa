package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	s := ""
	if a.operator != "" {
		s = a.operator + " "
	}
	if a.active != nil {
		s = s + "signing " + a.active.subjectID + "/" + a.active.kind + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root prints the banner, starts the online watcher and runs the REPL until
// the user exits. A session still open on exit is aborted.
func (a *App) Root(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "studiosign operator console (type 'help' for commands)")

	a.checkOnline(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)

	if a.active != nil {
		_ = a.Abort(ctx, nil)
	}
}
