package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier delivers operator alerts.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

type client struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

type nopNotifier struct{}

func (nopNotifier) SendMessage(context.Context, string) error { return nil }

// NewNop returns a Notifier that drops every message.
func NewNop() Notifier {
	return nopNotifier{}
}

// NewClient creates a Telegram notifier for chatID. An empty botToken disables alerts and
// yields a no-op Notifier.
func NewClient(botToken string, chatID int64) (Notifier, error) {
	return NewClientWithEndpoint(botToken, chatID, tgbotapi.APIEndpoint)
}

// NewClientWithEndpoint is NewClient against a custom Bot API endpoint
// (format "https://host/bot%s/%s").
func NewClientWithEndpoint(botToken string, chatID int64, endpoint string) (Notifier, error) {
	if botToken == "" {
		return NewNop(), nil
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat_id is required when bot_token is set")
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(botToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate telegram bot: %w", err)
	}
	return &client{bot: bot, chatID: chatID}, nil
}

// SendMessage posts a Markdown message to the configured chat. The Bot API client is not
// context aware, so ctx only bounds how long the caller waits.
func (c *client) SendMessage(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	done := make(chan error, 1)
	go func() {
		_, err := c.bot.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send telegram message: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
