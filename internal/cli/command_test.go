package cli_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	flag "github.com/spf13/pflag"

	"github.com/NotAShelf/stash/internal/cli"
	"github.com/NotAShelf/stash/internal/store"
)

func newTestCommand(exec func(ctx context.Context, o *cli.IO, args []string) error) *cli.Command {
	return &cli.Command{
		Flags: flag.NewFlagSet("test", flag.ContinueOnError),
		Usage: "test",
		Short: "a test command",
		Exec:  exec,
	}
}

func TestCommandRunReturnsSuccessOnNilError(t *testing.T) {
	t.Parallel()

	cmd := newTestCommand(func(context.Context, *cli.IO, []string) error { return nil })

	var out, errOut bytes.Buffer

	exitCode := cmd.Run(context.Background(), cli.NewIO(nil, &out, &errOut), nil)
	if exitCode != cli.ExitSuccess {
		t.Fatalf("exit code = %d, want %d", exitCode, cli.ExitSuccess)
	}
}

func TestCommandRunMapsErrUsageToExitUsageError(t *testing.T) {
	t.Parallel()

	cmd := newTestCommand(func(context.Context, *cli.IO, []string) error { return cli.ErrUsage })

	var out, errOut bytes.Buffer

	exitCode := cmd.Run(context.Background(), cli.NewIO(nil, &out, &errOut), nil)
	if exitCode != cli.ExitUsageError {
		t.Fatalf("exit code = %d, want %d", exitCode, cli.ExitUsageError)
	}

	if errOut.Len() == 0 {
		t.Error("expected an error message on stderr")
	}
}

func TestCommandRunMapsStoreNotFoundToExitNotFound(t *testing.T) {
	t.Parallel()

	cmd := newTestCommand(func(context.Context, *cli.IO, []string) error { return store.ErrNotFound })

	var out, errOut bytes.Buffer

	exitCode := cmd.Run(context.Background(), cli.NewIO(nil, &out, &errOut), nil)
	if exitCode != cli.ExitNotFound {
		t.Fatalf("exit code = %d, want %d", exitCode, cli.ExitNotFound)
	}
}

func TestCommandRunMapsUnknownErrorToGenericError(t *testing.T) {
	t.Parallel()

	cmd := newTestCommand(func(context.Context, *cli.IO, []string) error { return errors.New("boom") })

	var out, errOut bytes.Buffer

	exitCode := cmd.Run(context.Background(), cli.NewIO(nil, &out, &errOut), nil)
	if exitCode != cli.ExitGenericError {
		t.Fatalf("exit code = %d, want %d", exitCode, cli.ExitGenericError)
	}
}

func TestCommandRunHelpFlagPrintsHelpAndExitsSuccess(t *testing.T) {
	t.Parallel()

	cmd := newTestCommand(func(context.Context, *cli.IO, []string) error { return nil })

	var out, errOut bytes.Buffer

	exitCode := cmd.Run(context.Background(), cli.NewIO(nil, &out, &errOut), []string{"--help"})
	if exitCode != cli.ExitSuccess {
		t.Fatalf("exit code = %d, want %d", exitCode, cli.ExitSuccess)
	}

	if out.Len() == 0 {
		t.Error("expected help text on stdout")
	}
}

func TestCommandNameIsFirstWordOfUsage(t *testing.T) {
	t.Parallel()

	cmd := newTestCommand(nil)
	cmd.Usage = "delete ARG [--type id|query]"

	if got, want := cmd.Name(), "delete"; got != want {
		t.Errorf("Name() = %q, want %q", got, want)
	}
}
