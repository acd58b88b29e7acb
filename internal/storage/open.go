package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dohr-michael/hellotodo/internal/config"
)

// SQLiteFile is the database file name used by the sqlite driver inside the
// data dir.
const SQLiteFile = "hellotodo.db"

// Open builds the slot described by cfg, wrapping it with age encryption
// when requested.
func Open(cfg config.StorageConfig) (Slot, error) {
	if err := ValidateKey(cfg.Key); err != nil {
		return nil, err
	}

	var (
		slot Slot
		err  error
	)
	switch cfg.Driver {
	case config.DriverFile, "":
		slot, err = NewFileSlot(cfg.Dir)
	case config.DriverSQLite:
		slot, err = NewSQLiteSlot(filepath.Join(cfg.Dir, SQLiteFile))
	case config.DriverMemory:
		slot = NewMemorySlot()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if !cfg.Encrypt {
		return slot, nil
	}

	if err := GenerateIdentity(cfg.KeyFile); err != nil {
		slot.Close()
		return nil, err
	}
	identity, err := LoadIdentity(cfg.KeyFile)
	if err != nil {
		slot.Close()
		return nil, err
	}
	slog.Debug("slot encryption enabled", "key_file", cfg.KeyFile)
	return NewAgeSlot(slot, identity), nil
}
