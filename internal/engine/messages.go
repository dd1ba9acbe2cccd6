package engine

import (
	"fmt"
	"strings"
	"time"

	"signalbot/internal/gateway/notifier"
	"signalbot/internal/ledger"
	"signalbot/internal/pkg/utils"
	"signalbot/internal/position"
	"signalbot/internal/signal"
)

func renderAlert(sig signal.Signal) string {
	reasons := "-"
	if len(sig.Reasons) > 0 {
		reasons = strings.Join(sig.Reasons, ", ")
	}
	msg := notifier.StructuredMessage{
		Icon:      "📈",
		Title:     "Signal " + sig.Symbol,
		Timestamp: sig.Timestamp,
	}
	f := sig.Features
	msg.Section("Entry",
		notifier.KV("Price", utils.FormatFloat(sig.EntryPrice)),
		notifier.KV("Score", utils.FormatFloat(sig.Score)),
		notifier.KV("Reasons", reasons),
	).Section("Features",
		notifier.KV("RSI", fmt.Sprintf("%.2f", f.RSI)),
		notifier.KV("EMA diff", utils.FormatFloat(f.EMADiff)),
		notifier.KV("MACD diff", utils.FormatFloat(f.MACDDiff)),
		notifier.KV("Volume rel", fmt.Sprintf("%.2f", f.VolumeRelative)),
		notifier.KV("BB position", fmt.Sprintf("%.2f", f.BBPosition)),
	)
	return msg.RenderMarkdown()
}

func renderOpen(p position.Position) string {
	msg := notifier.StructuredMessage{
		Icon:      "🟢",
		Title:     "Opened " + p.Symbol,
		Timestamp: p.OpenedAt,
	}
	msg.Section("",
		notifier.KV("Entry", utils.FormatFloat(p.EntryPrice)),
		notifier.KV("Invested", utils.FormatMoney(p.InvestedAmount)),
		notifier.KV("Quantity", utils.FormatFloat(p.Quantity)),
		notifier.KV("Target", utils.FormatPercent(p.TargetPct)),
		notifier.KV("Stop", utils.FormatPercent(-p.StopLossPct)),
	)
	return msg.RenderMarkdown()
}

func closeIcon(t position.Trade) string {
	switch t.State {
	case position.StateClosedTarget:
		return "🎯"
	case position.StateClosedStopLoss:
		return "🛑"
	default:
		return "⏱"
	}
}

func renderClose(t position.Trade) string {
	msg := notifier.StructuredMessage{
		Icon:      closeIcon(t),
		Title:     fmt.Sprintf("Closed %s (%s)", t.Symbol, t.ClosedBy),
		Timestamp: t.ClosedAt,
	}
	msg.Section("",
		notifier.KV("Entry", utils.FormatFloat(t.EntryPrice)),
		notifier.KV("Exit", utils.FormatFloat(t.ExitPrice)),
		notifier.KV("Final value", utils.FormatMoney(t.FinalValue)),
		notifier.KV("PnL", fmt.Sprintf("%s (%s)", utils.FormatMoney(t.PnL), utils.FormatPercent(t.PnLPct))),
	)
	return msg.RenderMarkdown()
}

func renderSummary(now time.Time, span time.Duration, alerts int64, open []position.Position, marks map[string]float64, snap ledger.Snapshot) string {
	msg := notifier.StructuredMessage{
		Icon:      "📊",
		Title:     "Summary",
		Timestamp: now,
	}
	msg.Section("Activity",
		notifier.KV("Window", span.Round(time.Minute).String()),
		notifier.KV("Alerts", alerts),
		notifier.KV("Open positions", len(open)),
		notifier.KV("Balance", snap.Balance.StringFixed(2)),
	)
	if len(open) > 0 {
		lines := make([]string, 0, len(open))
		for _, p := range open {
			line := fmt.Sprintf("%s entry=%s invested=%s target=%s",
				p.Symbol, utils.FormatFloat(p.EntryPrice), utils.FormatMoney(p.InvestedAmount), utils.FormatPercent(p.TargetPct))
			if price, ok := marks[p.Symbol]; ok {
				line += fmt.Sprintf(" now=%s move=%s upnl=%s",
					utils.FormatFloat(price), utils.FormatPercent(p.ChangePct(price)), utils.FormatMoney(price*p.Quantity-p.InvestedAmount))
			}
			lines = append(lines, line)
		}
		msg.Section("Positions", lines...)
	}
	return msg.RenderMarkdown()
}
