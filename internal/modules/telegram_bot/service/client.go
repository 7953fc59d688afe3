package service

import (
	"context"
	"errors"
	"unicode/utf8"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	messageLimit = 4096
	captionLimit = 1024
)

var errNoChat = errors.New("telegram: chat id is not set")

// sender — то, что нужно от BotAPI для отправки.
type sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// NewBotAPI — nil без токена: алерты уходят в лог, команды не принимаются.
func NewBotAPI(cfg *config.Config) (*tgbot.BotAPI, error) {
	if cfg.Telegram.Token == "" {
		logger.Warn("[TG] token is empty, using log notifier")
		return nil, nil
	}
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	logger.Info("[TG] authorized as @%s", b.Self.UserName)
	return b, nil
}

// Notifier отправляет алерты, дайджесты и ответы на команды в чат.
type Notifier struct {
	bot sender
}

func NewNotifier(bot sender) *Notifier {
	return &Notifier{bot: bot}
}

// Notify — текст и, если есть, картинка. Длинный текст режется по строкам.
func (n *Notifier) Notify(ctx context.Context, chatID int64, text string, image []byte) error {
	if chatID == 0 {
		return errNoChat
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(image) > 0 {
		photo := tgbot.NewPhoto(chatID, tgbot.FileBytes{Name: "chart.png", Bytes: image})
		if utf8.RuneCountInString(text) <= captionLimit {
			photo.Caption = text
			_, err := n.bot.Send(photo)
			return err
		}
		if _, err := n.bot.Send(photo); err != nil {
			return err
		}
	}

	for _, part := range splitMessage(text, messageLimit) {
		msg := tgbot.NewMessage(chatID, part)
		msg.DisableWebPagePreview = true
		if _, err := n.bot.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) Send(ctx context.Context, chatID int64, text string) error {
	return n.Notify(ctx, chatID, text, nil)
}

func (n *Notifier) Alert(ctx context.Context, dest int64, a models.Alert) error {
	return n.Send(ctx, dest, formatAlert(a))
}

func (n *Notifier) Digest(ctx context.Context, dest int64, stats *models.ScanStats, alerts []models.Alert) error {
	return n.Send(ctx, dest, formatDigest(stats, alerts))
}

func (n *Notifier) Progress(ctx context.Context, dest int64, profile string, done, total int) error {
	return n.Send(ctx, dest, formatProgress(profile, done, total))
}

// LogNotifier пишет всё в лог, когда бота нет.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, chatID int64, text string, image []byte) error {
	logger.Info("[NOTIFY] chat=%d image=%dB\n%s", chatID, len(image), text)
	return nil
}

func (l LogNotifier) Send(ctx context.Context, chatID int64, text string) error {
	return l.Notify(ctx, chatID, text, nil)
}

func (l LogNotifier) Alert(ctx context.Context, dest int64, a models.Alert) error {
	return l.Send(ctx, dest, formatAlert(a))
}

func (l LogNotifier) Digest(ctx context.Context, dest int64, stats *models.ScanStats, alerts []models.Alert) error {
	return l.Send(ctx, dest, formatDigest(stats, alerts))
}

func (l LogNotifier) Progress(ctx context.Context, dest int64, profile string, done, total int) error {
	return l.Send(ctx, dest, formatProgress(profile, done, total))
}

// splitMessage режет текст на куски не длиннее limit рун, по возможности по переводу строки.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		parts []string
		cur   []rune
	)
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= limit {
			cur = runes
			runes = nil
		} else {
			cut := limit
			for i := limit - 1; i > 0; i-- {
				if runes[i] == '\n' {
					cut = i + 1
					break
				}
			}
			cur, runes = runes[:cut], runes[cut:]
		}
		parts = append(parts, string(cur))
	}
	return parts
}
