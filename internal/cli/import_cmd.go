package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/NotAShelf/stash/internal/tsv"
)

// ImportCmd returns the "import" command.
func ImportCmd(deps commandDeps) *Command {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.String("type", "tsv", "Import format (only tsv is supported)")

	return &Command{
		Flags: fs,
		Usage: "import [--type tsv]",
		Short: "Import entries from stdin",
		Long:  "Read TSV from stdin and insert each row. A malformed line aborts the whole import.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			importType, _ := fs.GetString("type")
			if importType != "tsv" {
				return fmt.Errorf("%w: unsupported import type %q", ErrUsage, importType)
			}

			return execImport(ctx, o, deps)
		},
	}
}

func execImport(ctx context.Context, o *IO, deps commandDeps) error {
	s, err := openStore(ctx, deps.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	result, err := tsv.Import(ctx, s, o.Stdin())
	if err != nil {
		return err
	}

	o.Printf("imported %d, skipped %d duplicates\n", result.Inserted, result.Skipped)

	return nil
}
