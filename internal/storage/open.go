package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/izupress/internal/config"
)

// Open builds the Store selected by cfg.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.StoreFS, "":
		return NewFSStore(filepath.Join(cfg.Dir, "objects"))
	case config.StoreBolt:
		return NewBoltStore(filepath.Join(cfg.Dir, "cache.bolt"))
	case config.StoreSQLite:
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", cfg.Dir, err)
		}
		return NewSQLiteStore(filepath.Join(cfg.Dir, "cache.sqlite"))
	case config.StoreNATS:
		return NewNATSStore(ctx, cfg.NATSURL, cfg.NATSBucket)
	case config.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
