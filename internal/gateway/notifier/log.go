package notifier

import "signalbot/internal/logger"

// LogNotifier prints messages locally; used when Telegram is not configured.
type LogNotifier struct{}

func (LogNotifier) SendText(text string) error {
	logger.InfoBlock("[notify]\n" + text)
	return nil
}
