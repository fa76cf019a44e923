package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// IO bundles the standard streams a command runs against.
type IO struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// NewIO creates a new IO instance.
func NewIO(in io.Reader, out, errOut io.Writer) *IO {
	return &IO{in: in, out: out, errOut: errOut}
}

// Stdin returns the command's input stream, used by "store" and
// "import" to read the candidate payload.
func (o *IO) Stdin() io.Reader { return o.in }

// Stdout returns the command's output stream directly, for commands
// like "decode" that must write a payload byte-exact without any
// formatting layered on top.
func (o *IO) Stdout() io.Writer { return o.out }

// Println writes to stdout.
func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout.
func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Confirm asks the user a yes/no question, for --ask (spec §7: "--ask
// gates wipes and bulk deletes with an interactive confirmation"). On
// a real terminal it uses a readline-style prompt so the answer can be
// edited before Enter; piped input (tests, scripted invocations) falls
// back to a plain line read.
func (o *IO) Confirm(prompt string) bool {
	if f, ok := o.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return o.confirmInteractive(prompt)
	}

	return o.confirmPiped(prompt)
}

func (o *IO) confirmInteractive(prompt string) bool {
	state := liner.NewLiner()
	defer state.Close()

	state.SetCtrlCAborts(true)

	answer, err := state.Prompt(prompt + " [y/N] ")
	if err != nil {
		return false
	}

	return isYes(answer)
}

func (o *IO) confirmPiped(prompt string) bool {
	_, _ = fmt.Fprintf(o.errOut, "%s [y/N] ", prompt)

	line, err := bufio.NewReader(o.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	return isYes(line)
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
