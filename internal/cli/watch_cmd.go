package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/NotAShelf/stash/internal/clipboard"
	"github.com/NotAShelf/stash/internal/config"
	"github.com/NotAShelf/stash/internal/focus"
	stashwatch "github.com/NotAShelf/stash/internal/watch"
	"github.com/NotAShelf/stash/internal/wayland"
)

const (
	seatInterface                   = "wl_seat"
	dataControlManagerInterface     = "zwlr_data_control_manager_v1"
	foreignToplevelManagerInterface = "zwlr_foreign_toplevel_manager_v1"
)

// WatchCmd returns the "watch" command: the long-running daemon.
func WatchCmd(deps commandDeps) *Command {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.String("mime-type", "any", "Preferred mime type when several are offered: any|text|image")
	fs.String("expire-after", "", "TTL applied to every captured entry (e.g. 24h, 30m, 7d)")

	return &Command{
		Flags: fs,
		Usage: "watch [--mime-type any|text|image] [--expire-after DURATION]",
		Short: "Run the clipboard-watching daemon",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			mimeType, _ := fs.GetString("mime-type")
			expireAfter, _ := fs.GetString("expire-after")

			pref, err := parsePreference(mimeType)
			if err != nil {
				return err
			}

			var ttl time.Duration

			if expireAfter != "" {
				ttl, err = config.ParseDuration(expireAfter)
				if err != nil {
					return fmt.Errorf("%w: %w", ErrUsage, err)
				}
			}

			return execWatch(ctx, o, deps, pref, ttl)
		},
	}
}

func parsePreference(s string) (clipboard.Preference, error) {
	switch s {
	case "", "any":
		return clipboard.PreferenceAny, nil
	case "text":
		return clipboard.PreferenceText, nil
	case "image":
		return clipboard.PreferenceImage, nil
	default:
		return 0, fmt.Errorf("%w: --mime-type must be any, text, or image", ErrUsage)
	}
}

func execWatch(ctx context.Context, o *IO, deps commandDeps, pref clipboard.Preference, ttl time.Duration) error {
	s, err := openStore(ctx, deps.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	conn, err := wayland.Dial(nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	reg, err := wayland.Bootstrap(conn)
	if err != nil {
		return err
	}

	if err := awaitGlobal(conn, reg, seatInterface); err != nil {
		return err
	}

	seatID, err := reg.Bind(seatInterface, nil)
	if err != nil {
		return err
	}

	// data-control is required for the gateway to work at all, so its
	// absence fails fast. foreign-toplevel-management is optional
	// (focus.New degrades gracefully if the compositor never
	// advertises it) so it is not worth blocking startup on.
	if err := awaitGlobal(conn, reg, dataControlManagerInterface); err != nil {
		return err
	}

	oracle := focus.New(deps.log, conn, reg)

	gw, err := clipboard.New(deps.log, conn, reg, seatID)
	if err != nil {
		return err
	}

	w, err := stashwatch.New(ctx, deps.log, s, oracle, gw, stashwatch.Config{
		FilterConfig:   filterConfig(deps.cfg),
		Preference:     pref,
		ExpireAfter:    ttl,
		ClipboardState: stashwatch.ClipboardState(deps.env["STASH_CLIPBOARD_STATE"]),
	})
	if err != nil {
		return err
	}

	dispatchErrs := make(chan error, 1)

	go func() {
		for {
			if err := conn.Dispatch(); err != nil {
				select {
				case dispatchErrs <- err:
				default:
				}

				return
			}
		}
	}()

	runErrs := make(chan error, 1)

	go func() {
		runErrs <- w.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-dispatchErrs:
		if errors.Is(err, wayland.ErrUnavailable) {
			return fmt.Errorf("watch: connection closed: %w", err)
		}

		return fmt.Errorf("watch: wayland dispatch: %w", err)
	case err := <-runErrs:
		return err
	}
}

// awaitGlobal dispatches events until the compositor has advertised
// iface, bounded so a misbehaving compositor can't hang the process
// forever. The hand-rolled client has no wl_display.sync round-trip,
// so waiting for the specific global the caller needs next is the
// pragmatic substitute (registry state is otherwise "eventually
// consistent", per [wayland.Bootstrap]'s doc comment).
func awaitGlobal(conn *wayland.Conn, reg *wayland.Registry, iface string) error {
	const maxMessages = 4096

	for i := 0; i < maxMessages; i++ {
		if _, ok := reg.Lookup(iface); ok {
			return nil
		}

		if err := conn.Dispatch(); err != nil {
			return err
		}
	}

	return fmt.Errorf("watch: compositor never advertised %s", iface)
}
