package cmd

import (
	"fmt"
	"io"

	"github.com/rubiojr/crmdesk/pkg/access"
	"github.com/rubiojr/crmdesk/pkg/config"
	"github.com/rubiojr/crmdesk/pkg/log"
	"github.com/rubiojr/crmdesk/pkg/repository"
	"github.com/rubiojr/crmdesk/pkg/search"
	"github.com/rubiojr/crmdesk/pkg/source"
)

// services bundles the components shared by every command.
type services struct {
	cfg    *config.Config
	src    source.Source
	repo   *repository.Repository
	search *search.Service
	access *access.Control
}

// loadConfig reads and validates the configuration and applies its log
// level. --debug wins over the configured level.
func loadConfig(configPath string, debug bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	if debug {
		log.SetGlobalDebug(true)
	}
	return cfg, nil
}

// newServices builds the source, repository, lookup service and access
// control described by cfg.
func newServices(cfg *config.Config) (*services, error) {
	src, err := source.New(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("creating source: %w", err)
	}

	repo := repository.New(src, repository.Options{
		TTL:          cfg.Cache.TTL.Duration,
		MaxSheetRows: cfg.Cache.MaxSheetRows,
		FetchTimeout: cfg.Source.FetchTimeout.Duration,
	})

	return &services{
		cfg:    cfg,
		src:    src,
		repo:   repo,
		search: search.NewService(repo, search.Options{MaxResults: cfg.Search.MaxResults}),
		access: access.New(accessSettings(cfg), nil),
	}, nil
}

func accessSettings(cfg *config.Config) access.Settings {
	return access.Settings{
		APIKey:          cfg.Access.APIKey,
		AllowedUserIDs:  cfg.Access.AllowedUserIDs,
		RateLimitPerMin: cfg.Access.RateLimitPerMin,
	}
}

// Close releases the source when it holds resources.
func (s *services) Close() error {
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
