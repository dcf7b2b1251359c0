// Package bot answers trip lookups over Telegram.
//
// Handler holds the command logic and talks to Telegram through the Sender
// interface; Bot wires a Handler to a long-polling bot API client.
package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rubiojr/crmdesk/pkg/access"
	"github.com/rubiojr/crmdesk/pkg/log"
)

const pollTimeout = 60

type Bot struct {
	api     *tgbotapi.BotAPI
	handler *Handler
	logger  *log.Logger
}

// New authenticates against the bot API with token.
func New(token string, searcher Searcher, ac *access.Control) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:     api,
		handler: NewHandler(searcher, ac, api),
		logger:  log.ForService("bot"),
	}, nil
}

// Run polls for updates until ctx is cancelled. Messages are handled
// concurrently; Run waits for in-flight handlers before returning.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)
	b.logger.Infof("polling as @%s", b.api.Self.UserName)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Infof("stopped polling")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer wg.Done()
				b.handler.HandleMessage(ctx, msg)
			}(update.Message)
		}
	}
}
