package cli

import (
	"context"
	"errors"
	"io"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/NotAShelf/stash/internal/filter"
	"github.com/NotAShelf/stash/internal/store"
	"github.com/NotAShelf/stash/internal/watch"
)

// defaultStoreMime is assumed for payloads captured via stdin, which
// carry no mime type of their own (spec §6: "store # read payload from
// stdin, go through C3+C1").
const defaultStoreMime = "text/plain;charset=utf-8"

// StoreCmd returns the "store" command.
func StoreCmd(deps commandDeps) *Command {
	fs := flag.NewFlagSet("store", flag.ContinueOnError)
	fs.String("source-app", "", "Record the given app_id as the source application")

	return &Command{
		Flags: fs,
		Usage: "store",
		Short: "Read a payload from stdin and capture it",
		Long:  "Read the payload from stdin, run it through the filter, and insert it into the store.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			sourceApp, _ := fs.GetString("source-app")

			return execStore(ctx, o, deps, sourceApp)
		},
	}
}

func execStore(ctx context.Context, o *IO, deps commandDeps, sourceApp string) error {
	payload, err := io.ReadAll(o.Stdin())
	if err != nil {
		return err
	}

	if len(payload) == 0 {
		return errors.New("store: empty payload")
	}

	reason := filter.Admit(filterConfig(deps.cfg), filter.Candidate{
		Payload:   payload,
		Mime:      defaultStoreMime,
		SourceApp: sourceApp,
	})
	if reason != filter.ReasonNone {
		deps.log.Warn("capture rejected by store command",
			zap.String("reason", string(reason)),
			zap.String("mime", defaultStoreMime),
			zap.Int("size", len(payload)),
		)

		return nil
	}

	s, err := openStore(ctx, deps.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	result, err := s.Insert(ctx, store.Candidate{
		Mime:      defaultStoreMime,
		Payload:   payload,
		Preview:   watch.BuildPreview(defaultStoreMime, payload),
		SourceApp: sourceApp,
	})
	if err != nil {
		return err
	}

	if result.Duplicate {
		o.Printf("duplicate of %d\n", result.DuplicateID)

		return nil
	}

	o.Printf("%d\n", result.ID)

	return nil
}
