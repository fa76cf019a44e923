package cli

import (
	"context"
	"fmt"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/NotAShelf/stash/internal/query"
)

// DecodeCmd returns the "decode" command.
func DecodeCmd(deps commandDeps) *Command {
	return &Command{
		Flags: flag.NewFlagSet("decode", flag.ContinueOnError),
		Usage: "decode ID",
		Short: "Write an entry's raw payload to stdout",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: decode requires exactly one ID", ErrUsage)
			}

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: invalid ID %q", ErrUsage, args[0])
			}

			return execDecode(ctx, o, deps, id)
		},
	}
}

func execDecode(ctx context.Context, o *IO, deps commandDeps, id int64) error {
	s, err := openStore(ctx, deps.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	return query.Decode(ctx, s, o.Stdout(), id)
}
