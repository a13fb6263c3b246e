// Package telegram is the concrete Chat Bridge adapter spec.md §6 names:
// it receives (chat_id, text) pairs over long polling and exposes
// send(chat_id, text) back to the same peer. Grounded on
// haasonsaas-nexus/internal/channels/telegram/adapter.go, trimmed to the
// narrower contract SPEC_FULL.md scopes to — one allowed peer, text only,
// long polling only — dropping that teacher's webhook mode, media
// handling, and rate-limit plugin in favor of the single guarantee the
// spec actually names: messages from any other peer are discarded with a
// warn-level audit.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Handler is invoked once per accepted inbound message. chatID is the
// Telegram chat id rendered as a decimal string, matching the chat_id
// type the rest of the core uses.
type Handler func(ctx context.Context, chatID, text string)

// Audit records a discarded or noteworthy bridge event; nil disables it.
type Audit func(ctx context.Context, kind, detail string)

// Config configures the bridge.
type Config struct {
	Token string

	// AllowedChatID is the single peer the bridge accepts messages from,
	// per spec.md §6's "single allowed peer per chat bridge". Empty means
	// accept from anyone (useful for first-run discovery of a chat id).
	AllowedChatID string

	Logger *slog.Logger
	Audit  Audit
}

func (c *Config) validate() error {
	if c.Token == "" {
		return errors.New("telegram: token is required")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Adapter is the long-polling Chat Bridge implementation.
type Adapter struct {
	config    Config
	botClient BotClient
	handler   Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAdapter builds an Adapter and the underlying bot client. handler is
// called for every message accepted from the allowed peer.
func NewAdapter(cfg Config, handler Handler) (*Adapter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, errors.New("telegram: handler is required")
	}

	a := &Adapter{config: cfg, handler: handler}

	b, err := bot.New(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: bot.New: %w", err)
	}
	a.botClient = newRealBotClient(b)
	a.botClient.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, a.onUpdate)
	return a, nil
}

// SetBotClient swaps in a fake BotClient; used by tests.
func (a *Adapter) SetBotClient(c BotClient) {
	a.botClient = c
}

// Start begins long-polling in a background goroutine. It returns as soon
// as that goroutine is launched, without waiting for the first poll; call
// Stop to unwind it.
func (a *Adapter) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.botClient.Start(ctx)
	}()
}

// Stop cancels long-polling and waits for the goroutine to return.
func (a *Adapter) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
}

// Send delivers text to chatID. chatID must parse as an int64 Telegram
// chat id.
func (a *Adapter) Send(ctx context.Context, chatID, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", chatID, err)
	}
	_, err = a.botClient.SendMessage(ctx, &bot.SendMessageParams{ChatID: id, Text: text})
	if err != nil {
		return fmt.Errorf("telegram: SendMessage: %w", err)
	}
	return nil
}

func (a *Adapter) onUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}
	chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
	text := update.Message.Text
	if text == "" {
		return
	}

	if a.config.AllowedChatID != "" && chatID != a.config.AllowedChatID {
		a.audit(ctx, "telegram_peer_rejected", chatID)
		return
	}

	a.handler(ctx, chatID, text)
}

func (a *Adapter) audit(ctx context.Context, kind, detail string) {
	if a.config.Audit != nil {
		a.config.Audit(ctx, kind, detail)
	}
	a.config.Logger.Warn(kind, "detail", detail)
}
