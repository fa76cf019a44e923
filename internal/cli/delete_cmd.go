package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/NotAShelf/stash/internal/query"
	"github.com/NotAShelf/stash/internal/store"
)

// DeleteCmd returns the "delete" command.
func DeleteCmd(deps commandDeps) *Command {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.String("type", "", "Interpret ARG as id|query (default: auto-detect)")

	return &Command{
		Flags: fs,
		Usage: "delete ARG [--type id|query]",
		Short: "Delete an entry by id, or every entry matching a substring",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: delete requires exactly one ARG", ErrUsage)
			}

			typeHint, _ := fs.GetString("type")

			switch typeHint {
			case "", "id", "query":
			default:
				return fmt.Errorf("%w: --type must be id or query", ErrUsage)
			}

			return execDelete(ctx, o, deps, args[0], query.TypeHint(typeHint))
		},
	}
}

func execDelete(ctx context.Context, o *IO, deps commandDeps, arg string, hint query.TypeHint) error {
	if deps.ask && !o.Confirm(fmt.Sprintf("delete %q?", arg)) {
		o.Println("no-op: deletion declined")

		return nil
	}

	s, err := openStore(ctx, deps.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	count, err := query.Delete(ctx, s, arg, hint)
	if err != nil {
		return err
	}

	if count == 0 {
		return fmt.Errorf("delete %q: %w", arg, store.ErrNotFound)
	}

	o.Printf("deleted %d\n", count)

	return nil
}
