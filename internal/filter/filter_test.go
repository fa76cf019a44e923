package filter

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdmitPrecedenceExcludedAppBeatsSensitiveRegex(t *testing.T) {
	cfg := Config{
		SensitiveRegex: regexp.MustCompile(`^token=`),
		ExcludedApps:   []string{"1password"},
	}

	reason := Admit(cfg, Candidate{
		Payload:   []byte("token=abc"),
		Mime:      "text/plain",
		SourceApp: "1password",
	})

	require.Equal(t, ReasonExcludedApp, reason)
}

func TestAdmitSensitiveRegexOnlyAppliesToTextualMime(t *testing.T) {
	cfg := Config{SensitiveRegex: regexp.MustCompile(`^token=`)}

	reason := Admit(cfg, Candidate{Payload: []byte("token=abc"), Mime: "image/png"})
	require.Equal(t, ReasonNone, reason)

	reason = Admit(cfg, Candidate{Payload: []byte("token=abc"), Mime: "text/plain"})
	require.Equal(t, ReasonSensitive, reason)
}

func TestAdmitMinSizeRejectsShortAndWhitespaceOnly(t *testing.T) {
	cfg := Config{MinSize: 4}

	require.Equal(t, ReasonTooSmall, Admit(cfg, Candidate{Payload: []byte("ab"), Mime: "text/plain"}))
	require.Equal(t, ReasonTooSmall, Admit(cfg, Candidate{Payload: []byte("    "), Mime: "text/plain"}))
	require.Equal(t, ReasonNone, Admit(cfg, Candidate{Payload: []byte("abcd"), Mime: "text/plain"}))
}

func TestAdmitMimeAllowlist(t *testing.T) {
	cfg := Config{AcceptMime: []string{"text/plain"}}

	require.Equal(t, ReasonMimeRejected, Admit(cfg, Candidate{Payload: []byte("x"), Mime: "image/png"}))
	require.Equal(t, ReasonNone, Admit(cfg, Candidate{Payload: []byte("x"), Mime: "text/plain"}))
}

func TestAdmitEmptyConfigAdmitsEverything(t *testing.T) {
	require.Equal(t, ReasonNone, Admit(Config{}, Candidate{Payload: []byte("anything"), Mime: "text/plain"}))
}

func TestCompileSensitiveRegexRejectsInvalidPattern(t *testing.T) {
	_, err := CompileSensitiveRegex("(unterminated")
	require.ErrorIs(t, err, ErrInvalidRegex)
}

func TestCompileSensitiveRegexEmptyIsDisabled(t *testing.T) {
	re, err := CompileSensitiveRegex("")
	require.NoError(t, err)
	require.Nil(t, re)
}
