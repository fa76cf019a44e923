package cli_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/NotAShelf/stash/internal/cli"
)

func TestConfirmPipedAcceptsYAndYes(t *testing.T) {
	t.Parallel()

	for _, answer := range []string{"y\n", "Y\n", "yes\n", "YES\n"} {
		var errOut bytes.Buffer

		o := cli.NewIO(strings.NewReader(answer), &bytes.Buffer{}, &errOut)
		if !o.Confirm("proceed?") {
			t.Errorf("Confirm(%q) = false, want true", answer)
		}
	}
}

func TestConfirmPipedRejectsAnythingElse(t *testing.T) {
	t.Parallel()

	for _, answer := range []string{"n\n", "no\n", "\n", ""} {
		var errOut bytes.Buffer

		o := cli.NewIO(strings.NewReader(answer), &bytes.Buffer{}, &errOut)
		if o.Confirm("proceed?") {
			t.Errorf("Confirm(%q) = true, want false", answer)
		}
	}
}

func TestConfirmPipedPrintsPromptToStderr(t *testing.T) {
	t.Parallel()

	var errOut bytes.Buffer

	o := cli.NewIO(strings.NewReader("y\n"), &bytes.Buffer{}, &errOut)
	o.Confirm("wipe everything?")

	if !strings.Contains(errOut.String(), "wipe everything?") {
		t.Errorf("stderr = %q, want prompt text", errOut.String())
	}
}
