package client

import (
	"fmt"

	"taskboard/config"
	"taskboard/domain"
	"taskboard/storage"
)

// Open returns the repository selected by cfg.ClientMode.
func Open(cfg config.Config) (domain.Repository, error) {
	switch cfg.ClientMode {
	case config.ModeRemote, "":
		return NewRemote(cfg.ClientBaseURL, cfg.ClientTimeout), nil
	case config.ModeLocal:
		return storage.NewFileStore(cfg.ClientLocalPath), nil
	default:
		return nil, fmt.Errorf("unknown client mode %q", cfg.ClientMode)
	}
}
