package cli

import (
	"context"
	"fmt"

	"github.com/NotAShelf/stash/internal/config"
	"github.com/NotAShelf/stash/internal/filter"
	"github.com/NotAShelf/stash/internal/store"
)

func openStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	s, err := store.Open(ctx, cfg.DBPath, store.Options{
		MaxItems:        cfg.MaxItems,
		MaxDedupeSearch: cfg.MaxDedupeSearch,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return s, nil
}

func filterConfig(cfg config.Config) filter.Config {
	return filter.Config{
		SensitiveRegex: cfg.SensitiveRegexCompiled,
		ExcludedApps:   cfg.ExcludedApps,
	}
}
