package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rubiojr/crmdesk/pkg/api"
	"github.com/rubiojr/crmdesk/pkg/bot"
	"github.com/rubiojr/crmdesk/pkg/config"
	"github.com/rubiojr/crmdesk/pkg/log"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API and, when a token is configured, the Telegram bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on (overrides listen_addr)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.Bool("debug"), c.String("listen"))
		},
	}
}

func serve(ctx context.Context, configPath string, debug bool, listen string) error {
	logger := log.ForService("serve")

	cfg, err := loadConfig(configPath, debug)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.ListenAddr = listen
	}
	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	logger.Infof("log level %s", log.Level())
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warnf("closing source: %v", err)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	// Warming is best effort: requests fetch on demand when it fails.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := svc.repo.WarmCache(runCtx); err != nil {
			logger.Warnf("cache warm-up failed: %v", err)
			return
		}
		logger.Infof("cache warmed")
	}()

	server := api.NewServer(svc.search, svc.access, svc.repo, cfg.Access.APIKeyHeader)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 2)
	go func() {
		logger.Infof("HTTP API listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if cfg.Bot.TelegramToken != "" {
		b, err := bot.New(cfg.Bot.TelegramToken, svc.search, svc.access)
		if err != nil {
			logger.Errorf("starting telegram bot: %v", err)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := b.Run(runCtx); err != nil {
					errCh <- fmt.Errorf("telegram bot: %w", err)
				}
			}()
		}
	} else {
		logger.Infof("telegram token not set, bot disabled")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("failed to create config file watcher: %v", err)
	} else {
		defer watcher.Close()
		if err := watcher.Add(configPath); err != nil {
			logger.Warnf("not watching config file %s: %v", configPath, err)
		} else {
			logger.Infof("watching config file for changes: %s", configPath)
		}
		events, watchErrs = watcher.Events, watcher.Errors
	}

	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Infof("received SIGHUP, reloading configuration")
				if err := reloadConfiguration(configPath, svc, debug); err != nil {
					logger.Errorf("failed to reload configuration: %v", err)
				}
				continue
			}
			logger.Infof("shutting down")
			return shutdown(httpServer, cancel, &wg)

		case <-ctx.Done():
			return shutdown(httpServer, cancel, &wg)

		case err := <-errCh:
			_ = shutdown(httpServer, cancel, &wg)
			return err

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			logger.Infof("config file changed (%s), reloading configuration", event.Op)

			// Editors replace files atomically; the watch has to be re-added.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					logger.Warnf("config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					logger.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			if err := reloadConfiguration(configPath, svc, debug); err != nil {
				logger.Errorf("failed to reload configuration: %v", err)
			}

		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			logger.Warnf("config file watcher error: %v", err)
		}
	}
}

func shutdown(httpServer *http.Server, cancel context.CancelFunc, wg *sync.WaitGroup) error {
	cancel()
	ctx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	err := httpServer.Shutdown(ctx)
	wg.Wait()
	return err
}

// reloadConfiguration applies the parts of a changed configuration that can
// change at runtime: access control and the log level. The cache is dropped
// so the next request sees current sheet data. Everything else needs a
// restart. debug keeps --debug in effect over the configured level.
func reloadConfiguration(configPath string, svc *services, debug bool) error {
	logger := log.ForService("serve")

	newCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading new config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return err
	}
	if err := log.SetLevel(newCfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	if debug {
		log.SetGlobalDebug(true)
	}

	for _, change := range restartOnlyChanges(svc.cfg, newCfg) {
		logger.Warnf("%s changed; restart to apply", change)
	}

	svc.access.Update(accessSettings(newCfg))
	svc.repo.Invalidate()
	svc.cfg.Access = newCfg.Access
	svc.cfg.LogLevel = newCfg.LogLevel

	logger.Infof("configuration reloaded, log level %s", log.Level())
	return nil
}

// restartOnlyChanges names the settings that differ between prev and next but
// are only read at startup.
func restartOnlyChanges(prev, next *config.Config) []string {
	var changed []string
	if next.Source != prev.Source {
		changed = append(changed, "source settings")
	}
	if next.ListenAddr != prev.ListenAddr {
		changed = append(changed, "listen address")
	}
	if next.Bot.TelegramToken != prev.Bot.TelegramToken {
		changed = append(changed, "telegram token")
	}
	if next.Cache != prev.Cache {
		changed = append(changed, "cache settings")
	}
	if next.Search != prev.Search {
		changed = append(changed, "search settings")
	}
	return changed
}
