package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/NotAShelf/stash/internal/config"
	"github.com/NotAShelf/stash/internal/logging"
)

// Run is stash's main entry point. Returns the process exit code.
// sigCh can be nil if signal handling is not needed (e.g. in tests).
func Run(stdin io.Reader, out, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globalFlags := flag.NewFlagSet("stash", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.Usage = func() {}
	globalFlags.SetOutput(&strings.Builder{})

	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")
	flagConfig := globalFlags.String("config", "", "Use specified config `file`")
	flagMaxItems := globalFlags.Int("max-items", 0, "Cap the number of active entries kept")
	flagMaxDedupe := globalFlags.Int("max-dedupe-search", 0, "Bound the dedup scan window")
	flagPreviewWidth := globalFlags.Int("preview-width", 0, "Bound the preview column width for table output")
	flagDBPath := globalFlags.String("db-path", "", "Override the database `path`")
	flagExcludedApps := globalFlags.String("excluded-apps", "", "Comma-separated app_id exclusion list")
	flagAsk := globalFlags.Bool("ask", false, "Prompt before wipes and bulk deletes")
	flagVerbose := globalFlags.CountP("verbose", "v", "Increase log verbosity")
	flagQuiet := globalFlags.CountP("quiet", "q", "Decrease log verbosity")

	if err := globalFlags.Parse(args[1:]); err != nil {
		fprintln(errOut, "error:", err)
		printGlobalOptions(errOut)

		return ExitUsageError
	}

	overrides := config.Config{
		DBPath:          *flagDBPath,
		MaxItems:        *flagMaxItems,
		MaxDedupeSearch: *flagMaxDedupe,
		PreviewWidth:    *flagPreviewWidth,
	}

	if *flagExcludedApps != "" {
		overrides.ExcludedApps = splitCSV(*flagExcludedApps)
	}

	cfg, err := config.Load(config.LoadInput{
		ExplicitConfigPath: *flagConfig,
		Env:                env,
		CredentialFilePath: env["STASH_SENSITIVE_REGEX_FILE"],
		Overrides:          overrides,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return ExitGenericError
	}

	level := logging.FromVerbosity(*flagVerbose, *flagQuiet)
	log := logging.NewCLI(errOut, level)

	deps := commandDeps{cfg: cfg, env: env, log: log, ask: *flagAsk}

	commands := allCommands(deps)

	commandMap := make(map[string]*Command, len(commands))
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
	}

	commandAndArgs := globalFlags.Args()

	if *flagHelp || (len(commandAndArgs) == 0 && globalFlags.NFlag() == 0) {
		printUsage(out, commands)

		return ExitSuccess
	}

	if len(commandAndArgs) == 0 {
		fprintln(errOut, "error: no command provided")
		printUsage(errOut, commands)

		return ExitUsageError
	}

	cmdName := commandAndArgs[0]

	cmd, ok := commandMap[cmdName]
	if !ok {
		fprintln(errOut, "error: unknown command:", cmdName)
		printUsage(errOut, commands)

		return ExitUsageError
	}

	cmdIO := NewIO(stdin, out, errOut)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan int, 1)

	go func() {
		done <- cmd.Run(ctx, cmdIO, commandAndArgs[1:])
	}()

	select {
	case exitCode := <-done:
		return exitCode
	case <-sigCh:
		fprintln(errOut, "shutting down with 5s timeout...")
		cancel()
	}

	select {
	case <-done:
		fprintln(errOut, "graceful shutdown ok")

		return ExitSuccess
	case <-time.After(5 * time.Second):
		fprintln(errOut, "graceful shutdown timed out, forced exit")

		return ExitGenericError
	case <-sigCh:
		fprintln(errOut, "graceful shutdown interrupted, forced exit")

		return ExitGenericError
	}
}

// commandDeps carries what every command constructor needs, captured
// by closure in allCommands.
type commandDeps struct {
	cfg config.Config
	env map[string]string
	log *zap.Logger
	ask bool
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

const globalOptionsHelp = `  -h, --help                  Show help
  --config <file>              Use specified config file
  --max-items N                Cap the number of active entries kept
  --max-dedupe-search N        Bound the dedup scan window
  --preview-width N            Bound the preview column width for table output
  --db-path PATH                Override the database path
  --excluded-apps CSV           Comma-separated app_id exclusion list
  --ask                         Prompt before wipes and bulk deletes
  -v...                         Increase log verbosity
  -q...                         Decrease log verbosity`

func printGlobalOptions(w io.Writer) {
	fprintln(w, "Usage: stash [flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Global flags:")
	fprintln(w, globalOptionsHelp)
	fprintln(w)
	fprintln(w, "Run 'stash --help' for a list of commands.")
}

func printUsage(w io.Writer, commands []*Command) {
	fprintln(w, "stash - a Wayland clipboard history daemon and CLI")
	fprintln(w)
	fprintln(w, "Usage: stash [flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Flags:")
	fprintln(w, globalOptionsHelp)
	fprintln(w)
	fprintln(w, "Commands:")

	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine())
	}
}
