// Package filter decides whether a captured clipboard candidate may be
// persisted. Policies are modeled as an ordered table of tagged
// predicates rather than a chain of if-statements, so adding one is a
// one-line table edit (spec §9 "Policy composition"). See spec §4.3.
package filter

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Reason names why a candidate was rejected. Logged at warn level
// alongside mime and size, never the payload (spec §4.3).
type Reason string

// Reason values, one per policy in precedence order.
const (
	ReasonNone         Reason = ""
	ReasonExcludedApp  Reason = "excluded_app"
	ReasonSensitive    Reason = "sensitive_regex"
	ReasonTooSmall     Reason = "min_size"
	ReasonMimeRejected Reason = "accept_mime"
)

// Candidate is what the watch loop offers to the filter before it
// reaches the store.
type Candidate struct {
	Payload   []byte
	Mime      string
	SourceApp string // empty means unknown
}

// Config enumerates the policies the filter may enforce. A zero-value
// policy (empty regex, empty set, zero size, nil allowlist) is
// disabled.
type Config struct {
	SensitiveRegex *regexp.Regexp
	ExcludedApps   []string
	MinSize        int
	AcceptMime     []string
}

// policy is one tagged predicate. reject returns true to stop the
// candidate, and Admit then reports reason.
type policy struct {
	reason Reason
	reject func(Config, Candidate) bool
}

// table is the precedence order named by spec §4.3: excluded-app >
// sensitive-regex > size > mime-allowlist. Evaluated top to bottom;
// the first match wins.
var table = []policy{
	{
		reason: ReasonExcludedApp,
		reject: func(cfg Config, c Candidate) bool {
			if c.SourceApp == "" || len(cfg.ExcludedApps) == 0 {
				return false
			}

			return slices.Contains(cfg.ExcludedApps, c.SourceApp)
		},
	},
	{
		reason: ReasonSensitive,
		reject: func(cfg Config, c Candidate) bool {
			if cfg.SensitiveRegex == nil || !isTextual(c.Mime) {
				return false
			}

			if !utf8.Valid(c.Payload) {
				return false
			}

			return cfg.SensitiveRegex.Match(c.Payload)
		},
	},
	{
		reason: ReasonTooSmall,
		reject: func(cfg Config, c Candidate) bool {
			if cfg.MinSize <= 0 {
				return false
			}

			if len(c.Payload) < cfg.MinSize {
				return true
			}

			return isTextual(c.Mime) && isAllWhitespace(c.Payload)
		},
	},
	{
		reason: ReasonMimeRejected,
		reject: func(cfg Config, c Candidate) bool {
			if len(cfg.AcceptMime) == 0 {
				return false
			}

			return !slices.Contains(cfg.AcceptMime, c.Mime)
		},
	},
}

// Admit runs every policy in precedence order, returning the first
// matching rejection reason, or ReasonNone if the candidate may be
// persisted.
func Admit(cfg Config, c Candidate) Reason {
	for _, p := range table {
		if p.reject(cfg, c) {
			return p.reason
		}
	}

	return ReasonNone
}

func isTextual(mime string) bool {
	return strings.HasPrefix(mime, "text/")
}

func isAllWhitespace(payload []byte) bool {
	for _, r := range string(payload) {
		if !unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// CompileSensitiveRegex compiles the sensitive-content pattern,
// returning ErrInvalidRegex wrapped with the compiler's own message on
// failure. An invalid pattern is fatal at startup (spec §4.3).
func CompileSensitiveRegex(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRegex, err)
	}

	return re, nil
}
