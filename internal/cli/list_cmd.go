package cli

import (
	"context"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/NotAShelf/stash/internal/query"
)

// ListCmd returns the "list" command.
func ListCmd(deps commandDeps) *Command {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.String("format", "", "Output format: tsv|json|table (default: table on a terminal, else tsv)")
	fs.Bool("expired", false, "Include expired entries")
	fs.Int("limit", 0, "Maximum entries to show (0 means unlimited)")

	return &Command{
		Flags: fs,
		Usage: "list [--format tsv|json] [--expired]",
		Short: "List clipboard history",
		Long:  "List entries, newest first. TSV is the default non-interactive format.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			format, _ := fs.GetString("format")
			expired, _ := fs.GetBool("expired")
			limit, _ := fs.GetInt("limit")

			return execList(ctx, o, deps, format, expired, limit)
		},
	}
}

func execList(ctx context.Context, o *IO, deps commandDeps, format string, expired bool, limit int) error {
	s, err := openStore(ctx, deps.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	isTerminal := false
	if f, ok := o.Stdout().(interface{ Fd() uintptr }); ok {
		isTerminal = term.IsTerminal(int(f.Fd()))
	}

	return query.List(ctx, s, o.Stdout(), query.ListOptions{
		Format:         query.ResolveFormat(format, isTerminal),
		IncludeExpired: expired,
		Limit:          limit,
		PreviewWidth:   deps.cfg.PreviewWidth,
	})
}
