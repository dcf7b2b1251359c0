package bot

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rubiojr/crmdesk/pkg/access"
	"github.com/rubiojr/crmdesk/pkg/log"
	"github.com/rubiojr/crmdesk/pkg/metrics"
	"github.com/rubiojr/crmdesk/pkg/search"
)

// Replies sent to users.
const (
	MsgForbidden       = "Доступ запрещен"
	MsgRateLimited     = "Слишком много запросов, попробуи позже"
	MsgSurnameRequired = "Нужна фамилия для поиска"
	MsgTripIDRequired  = "Нужен идентификатор поездки"
	MsgNothingFound    = "Ничего не найдено"
	MsgTripNotFound    = "Поездка не найдена"
	MsgInternalError   = "Внутренняя ошибка, попробуйте позже"
	MsgHelp            = "Команды:\n/search <фамилия> - поиск поездок по фамилии\n/get_trip <номер> - полная информация о поездке"
)

// maxMessageLen is the Telegram limit for a single text message, in runes.
const maxMessageLen = 4096

// Searcher is the lookup service behind the bot.
type Searcher interface {
	SearchBySurname(ctx context.Context, surname string) (*search.SearchResponse, error)
	GetTrip(ctx context.Context, tripID string) (*search.TripDossier, error)
}

// Sender delivers outgoing messages. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Handler struct {
	searcher Searcher
	access   *access.Control
	sender   Sender
	logger   *log.Logger
}

func NewHandler(searcher Searcher, ac *access.Control, sender Sender) *Handler {
	return &Handler{
		searcher: searcher,
		access:   ac,
		sender:   sender,
		logger:   log.ForService("bot"),
	}
}

// HandleMessage dispatches a single incoming message. Anything that is not
// a known command is ignored.
func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "start", "help":
		h.reply(msg, MsgHelp)
	case "search":
		h.handleSearch(ctx, msg)
	case "get_trip":
		h.handleGetTrip(ctx, msg)
	}
}

func userID(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return ""
	}
	return strconv.FormatInt(msg.From.ID, 10)
}

// admit runs the allow-list and rate limit checks, replying on refusal.
func (h *Handler) admit(msg *tgbotapi.Message) bool {
	id := userID(msg)
	if !h.access.IsAllowedUser(id) {
		h.reply(msg, MsgForbidden)
		return false
	}
	if !h.access.Allow("tg:" + id) {
		metrics.RateLimited.WithLabelValues("bot").Inc()
		h.reply(msg, MsgRateLimited)
		return false
	}
	return true
}

func (h *Handler) handleSearch(ctx context.Context, msg *tgbotapi.Message) {
	if !h.admit(msg) {
		return
	}
	surname := strings.TrimSpace(msg.CommandArguments())
	if surname == "" {
		h.reply(msg, MsgSurnameRequired)
		return
	}

	logger := h.logger.With("user_id", userID(msg))
	result, err := h.searcher.SearchBySurname(ctx, surname)
	if err != nil {
		metrics.Requests.WithLabelValues("bot", "search", "error").Inc()
		logger.Errorf("action=search status=error err=%v", err)
		h.reply(msg, MsgInternalError)
		return
	}
	metrics.Requests.WithLabelValues("bot", "search", "ok").Inc()
	logger.Infof("action=search status=ok count=%d", result.Count)

	if result.Count == 0 {
		h.reply(msg, MsgNothingFound)
		return
	}
	for _, text := range result.TextMessages {
		h.reply(msg, text)
	}
}

func (h *Handler) handleGetTrip(ctx context.Context, msg *tgbotapi.Message) {
	if !h.admit(msg) {
		return
	}
	tripID := strings.TrimSpace(msg.CommandArguments())
	if tripID == "" {
		h.reply(msg, MsgTripIDRequired)
		return
	}

	logger := h.logger.With("user_id", userID(msg))
	dossier, err := h.searcher.GetTrip(ctx, tripID)
	switch {
	case errors.Is(err, search.ErrNotFound):
		metrics.Requests.WithLabelValues("bot", "get_trip", "not_found").Inc()
		h.reply(msg, MsgTripNotFound)
		return
	case err != nil:
		metrics.Requests.WithLabelValues("bot", "get_trip", "error").Inc()
		logger.Errorf("action=get_trip status=error err=%v", err)
		h.reply(msg, MsgInternalError)
		return
	}
	metrics.Requests.WithLabelValues("bot", "get_trip", "ok").Inc()
	logger.Infof("action=get_trip status=ok")

	body, err := json.MarshalIndent(dossier, "", "  ")
	if err != nil {
		logger.Errorf("encoding dossier: %v", err)
		h.reply(msg, MsgInternalError)
		return
	}
	for _, part := range splitMessage(string(body), maxMessageLen) {
		h.reply(msg, part)
	}
}

func (h *Handler) reply(msg *tgbotapi.Message, text string) {
	if _, err := h.sender.Send(tgbotapi.NewMessage(msg.Chat.ID, text)); err != nil {
		h.logger.Errorf("sending reply to chat %d: %v", msg.Chat.ID, err)
	}
}

// splitMessage cuts text into chunks of at most limit runes, preferring to
// break after a newline.
func splitMessage(text string, limit int) []string {
	var parts []string
	for utf8.RuneCountInString(text) > limit {
		end, n := 0, 0
		for i := range text {
			if n == limit {
				end = i
				break
			}
			n++
		}
		if nl := strings.LastIndexByte(text[:end], '\n'); nl > 0 {
			end = nl + 1
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
