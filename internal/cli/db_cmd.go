package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/NotAShelf/stash/internal/query"
)

// DbCmd returns the "db" command, which dispatches to its own
// subcommands (wipe, vacuum, stats) the way the top-level dispatcher
// dispatches to commands (spec §6 grammar: "db wipe|vacuum|stats").
func DbCmd(deps commandDeps) *Command {
	return &Command{
		Flags: flag.NewFlagSet("db", flag.ContinueOnError),
		Usage: "db wipe [--expired] [--ask] | db vacuum | db stats",
		Short: "Database maintenance: wipe, vacuum, stats",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: db requires a subcommand (wipe|vacuum|stats)", ErrUsage)
			}

			switch args[0] {
			case "wipe":
				return execDbWipe(ctx, o, deps, args[1:])
			case "vacuum":
				return execDbVacuum(ctx, o, deps)
			case "stats":
				return execDbStats(ctx, o, deps)
			default:
				return fmt.Errorf("%w: unknown db subcommand %q", ErrUsage, args[0])
			}
		},
	}
}

func execDbWipe(ctx context.Context, o *IO, deps commandDeps, args []string) error {
	fs := flag.NewFlagSet("db wipe", flag.ContinueOnError)
	fs.Bool("expired", false, "Only delete expired entries")
	fs.Bool("ask", deps.ask, "Prompt before deleting")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	expiredOnly, _ := fs.GetBool("expired")
	ask, _ := fs.GetBool("ask")

	return execWipe(ctx, o, commandDeps{cfg: deps.cfg, env: deps.env, log: deps.log, ask: ask}, expiredOnly)
}

func execDbVacuum(ctx context.Context, o *IO, deps commandDeps) error {
	s, err := openStore(ctx, deps.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.Vacuum(ctx); err != nil {
		return err
	}

	o.Println("vacuum complete")

	return nil
}

func execDbStats(ctx context.Context, o *IO, deps commandDeps) error {
	s, err := openStore(ctx, deps.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	stats, err := s.Stats(ctx)
	if err != nil {
		return err
	}

	return query.PrintStats(o.Stdout(), stats)
}
