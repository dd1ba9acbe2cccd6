package notifier

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramAttempts = 3

type botSender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Telegram 通知器：将告警、平仓与周期汇总推送至指定群/频道。
type Telegram struct {
	bot    botSender
	chatID int64
	sleep  func(time.Duration)
}

func NewTelegram(botToken, chatID string) (*Telegram, error) {
	id, err := parseChatID(chatID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(botToken) == "" {
		return nil, fmt.Errorf("telegram bot_token is empty")
	}
	bot, err := tgbot.NewBotAPI(strings.TrimSpace(botToken))
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Telegram{bot: bot, chatID: id, sleep: time.Sleep}, nil
}

func newTelegramWithSender(bot botSender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID, sleep: func(time.Duration) {}}
}

// SendText 发送 Markdown 文本消息（最多 3 次尝试）。
func (t *Telegram) SendText(text string) error {
	if t == nil || t.bot == nil {
		return fmt.Errorf("telegram not configured")
	}
	msg := tgbot.NewMessage(t.chatID, text)
	msg.ParseMode = tgbot.ModeMarkdown
	msg.DisableWebPagePreview = true

	var lastErr error
	for i := 0; i < telegramAttempts; i++ {
		if _, err := t.bot.Send(msg); err != nil {
			lastErr = err
			t.sleep(time.Duration(i+1) * time.Second)
			continue
		}
		return nil
	}
	return fmt.Errorf("telegram send failed after %d attempts: %w", telegramAttempts, lastErr)
}

func parseChatID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram chat_id %q is not numeric: %w", raw, err)
	}
	return id, nil
}
