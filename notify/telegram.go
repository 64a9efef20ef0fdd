package notify

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"flatshare-scraper/models"
)

// maxChatEntries is how many listings a chat message spells out
const maxChatEntries = 3

// Telegram posts a short summary of each batch to one chat
type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	channel string
}

// NewTelegram connects the bot. chatID is either numeric or an @channel
// name; endpoint may be empty to use the public API.
func NewTelegram(token, chatID, endpoint string) (*Telegram, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	t := &Telegram{}
	chatID = strings.TrimSpace(chatID)
	if strings.HasPrefix(chatID, "@") {
		t.channel = chatID
	} else {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", chatID, err)
		}
		t.chatID = id
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	t.bot = bot

	log.Printf("Authorized on account %s", bot.Self.UserName)
	return t, nil
}

// Notify sends the batch summary. Empty batches are ignored and failures
// are only logged.
func (t *Telegram) Notify(ctx context.Context, batch []models.Record) {
	if t == nil || len(batch) == 0 {
		return
	}

	var msg tgbotapi.MessageConfig
	if t.channel != "" {
		msg = tgbotapi.NewMessageToChannel(t.channel, BuildChatMessage(batch))
	} else {
		msg = tgbotapi.NewMessage(t.chatID, BuildChatMessage(batch))
	}
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("Warning: Telegram notification failed: %v\n", err)
		return
	}
	log.Println("Telegram notification sent")
}

// BuildChatMessage formats the count line and up to three entries
func BuildChatMessage(batch []models.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏳️‍🌈 %d new LGBTQ+ flatshare ads!\n\n", len(batch))

	for i, r := range batch {
		if i == maxChatEntries {
			break
		}
		fmt.Fprintf(&sb, "🏠 %s...\n📍 %s - %s\n🔗 %s\n\n",
			truncateRunes(r.Listing.Title, 40), r.Listing.Suburb, r.Listing.PriceLabel(), r.Listing.URL)
	}
	return sb.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
