package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/NotAShelf/stash/internal/query"
)

// WipeCmd returns the "wipe" command.
func WipeCmd(deps commandDeps) *Command {
	return &Command{
		Flags: flag.NewFlagSet("wipe", flag.ContinueOnError),
		Usage: "wipe",
		Short: "Delete every entry",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return execWipe(ctx, o, deps, false)
		},
	}
}

func execWipe(ctx context.Context, o *IO, deps commandDeps, expiredOnly bool) error {
	if deps.ask && !o.Confirm("wipe the clipboard history store?") {
		o.Println("no-op: wipe declined")

		return nil
	}

	s, err := openStore(ctx, deps.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	count, err := query.Wipe(ctx, s, expiredOnly)
	if err != nil {
		return err
	}

	o.Printf("wiped %d\n", count)

	return nil
}
