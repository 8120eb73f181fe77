package notifier

import (
	"fmt"
	"strings"
	"time"

	"CoinSentinel/internal/model"
)

// Message is one alert rendered for every channel.
type Message struct {
	Title   string
	Body    string
	Chat    string
	Trigger string
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }

// FormatAlert renders a firing for the prompt, Telegram and the history log.
func FormatAlert(f *model.Firing) Message {
	notes := f.Rule.Notes
	if strings.TrimSpace(notes) == "" {
		notes = "No notes."
	}
	price := model.FormatPrice(f.Price)
	msg := Message{
		Title:   "ALERT: " + f.Display,
		Trigger: f.Rule.Describe(),
	}

	switch f.Rule.Kind {
	case model.KindPriceHigh, model.KindPriceLow:
		kind := strings.ToUpper(string(f.Rule.Kind))
		target := model.FormatPrice(f.Rule.Price)
		msg.Body = fmt.Sprintf("%s reached the %s target of $%s!\nCurrent price: $%s\n\nNotes: %s",
			f.Display, kind, target, price, notes)
		msg.Chat = fmt.Sprintf("🔔 *PRICE ALERT: %s*\n\nReached the *%s* target of *$%s*.\nCurrent price: `$%s`\n\nNotes: %s",
			escapeMarkdown(f.Display), kind, target, price, escapeMarkdown(notes))
	default:
		msg.Body = fmt.Sprintf("Technical signal for %s!\n\nStatus: %s\nCurrent price: $%s\n\nNotes: %s",
			f.Display, f.Rule.Value, price, notes)
		msg.Chat = fmt.Sprintf("📈 *TECHNICAL SIGNAL: %s*\n\nStatus: *%s*\nCurrent price: `$%s`\n\nNotes: %s",
			escapeMarkdown(f.Display), escapeMarkdown(f.Rule.Value), price, escapeMarkdown(notes))
	}
	return msg
}

// FormatRows renders the last cycle for the /status command.
func FormatRows(rows []model.DisplayRow, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 *CoinSentinel* | %s\n\n", now.Format("2006-01-02 15:04")))
	if len(rows) == 0 {
		b.WriteString("No symbols monitored yet.")
		return b.String()
	}
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("`%s` ", r.Display))
		if r.Price == 0 {
			b.WriteString("unavailable")
			if r.Error != "" {
				b.WriteString(" (" + escapeMarkdown(r.Error) + ")")
			}
			b.WriteString("\n")
			continue
		}
		b.WriteString(fmt.Sprintf("$%s (%+.2f%%)", model.FormatPrice(r.Price), r.ChangePct24h))
		if r.Stale {
			b.WriteString(" stale")
		}
		if r.Indicators != nil {
			b.WriteString(fmt.Sprintf(" | RSI %.1f | %s | %s",
				r.Indicators.RSI, escapeMarkdown(r.Indicators.Status), escapeMarkdown(r.Indicators.MACD)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatHistory renders up to limit records, newest first.
func FormatHistory(records []model.HistoryRecord, limit int) string {
	if len(records) == 0 {
		return "🗂 No alerts fired yet."
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	var b strings.Builder
	b.WriteString("🗂 *Alert history*\n\n")
	for _, r := range records {
		b.WriteString(fmt.Sprintf("%s | *%s* | %s\n", r.Timestamp, escapeMarkdown(r.Symbol), escapeMarkdown(r.Trigger)))
	}
	return b.String()
}
