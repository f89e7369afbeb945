package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"brightermonday-scraper/runner"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxMessageLen is Telegram's limit for one text message
const MaxMessageLen = 4096

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts run reports to a chat
type Telegram struct {
	bot    sender
	chatID int64
}

// NewTelegram authorizes the bot token
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat ID is not set")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	log.Printf("[telegram] Authorized on account %s\n", bot.Self.UserName)

	return &Telegram{bot: bot, chatID: chatID}, nil
}

// NotifyCompleted sends the summary of a finished crawl
func (t *Telegram) NotifyCompleted(ctx context.Context, report *runner.Report) error {
	return t.send(ctx, formatCompleted(report))
}

// NotifyFailed sends the error that stopped a crawl
func (t *Telegram) NotifyFailed(ctx context.Context, runErr error) error {
	return t.send(ctx, fmt.Sprintf("❌ Crawl failed:\n%v", runErr))
}

func (t *Telegram) send(ctx context.Context, text string) error {
	for _, chunk := range splitMessage(text, MaxMessageLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(t.chatID, chunk)
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}
	return nil
}

func formatCompleted(report *runner.Report) string {
	var sb strings.Builder
	sb.WriteString("✅ Crawl finished\n\n")

	if report.Result != nil {
		fmt.Fprintf(&sb, "Pages scraped: %d\n", report.Result.Pages)
		fmt.Fprintf(&sb, "Listings found: %d\n", len(report.Result.Listings))
		fmt.Fprintf(&sb, "Stopped because: %s\n", strings.ReplaceAll(string(report.Result.Termination), "_", " "))
	}
	if !report.FinishedAt.IsZero() {
		fmt.Fprintf(&sb, "Duration: %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Second))
	}
	if report.SnapshotPath != "" {
		fmt.Fprintf(&sb, "File: %s\n", report.SnapshotPath)
	}
	if report.SheetURL != "" {
		fmt.Fprintf(&sb, "\nView spreadsheet: %s\n", report.SheetURL)
	}

	return strings.TrimRight(sb.String(), "\n")
}

// splitMessage cuts text into chunks of at most limit bytes, breaking on
// line boundaries when it can
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			flush()
			cut := cutPoint(line, limit)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if current.Len()+len(line) > limit {
			flush()
		}
		current.WriteString(line)
	}
	flush()

	return chunks
}

// cutPoint returns the largest index <= limit that does not split a UTF-8 sequence
func cutPoint(s string, limit int) int {
	cut := limit
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return limit
	}
	return cut
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
