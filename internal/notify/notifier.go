package notify

import (
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mt4_gateway/pkg/logger"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// Telegram pushes order notifications to one chat. Delivery is best effort;
// a failed send is logged and forgotten.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Warn("telegram send failed: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Stdout is the fallback notifier when no Telegram credentials are
// configured.
type Stdout struct{}

func (Stdout) Send(msg string) { logger.Info("notify: %s", msg) }

func (Stdout) Sendf(format string, args ...any) { Stdout{}.Send(fmt.Sprintf(format, args...)) }
