package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"flatshare-scraper/models"
)

type fakeTelegram struct {
	mu    sync.Mutex
	sends []map[string]string
}

func (f *fakeTelegram) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"Flatshare","username":"flatshare_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			f.mu.Lock()
			f.sends = append(f.sends, map[string]string{
				"chat_id": r.PostForm.Get("chat_id"),
				"text":    r.PostForm.Get("text"),
			})
			f.mu.Unlock()
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}
}

func testBatch(n int) []models.Record {
	batch := make([]models.Record, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, models.Record{
			Listing: models.Listing{
				Title:        fmt.Sprintf("Listing %d in a lovely queer-friendly share house", i),
				URL:          fmt.Sprintf("https://example.com/share/%d", i),
				Suburb:       "Newtown",
				PricePerWeek: models.IntPtr(300 + i),
			},
			Analysis: models.Analysis{Score: 60 + i},
		})
	}
	return batch
}

func TestTelegramNotify(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	tg, err := NewTelegram("123:abc", "42", srv.URL+"/bot%s/%s")
	if err != nil {
		t.Fatalf("NewTelegram() error = %v", err)
	}

	tg.Notify(context.Background(), testBatch(5))

	if len(fake.sends) != 1 {
		t.Fatalf("sent %d messages, want 1", len(fake.sends))
	}
	sent := fake.sends[0]
	if sent["chat_id"] != "42" {
		t.Errorf("chat_id = %q", sent["chat_id"])
	}
	if !strings.HasPrefix(sent["text"], "🏳️‍🌈 5 new LGBTQ+ flatshare ads!") {
		t.Errorf("text = %q", sent["text"])
	}
	if got := strings.Count(sent["text"], "🔗"); got != 3 {
		t.Errorf("message has %d entries, want 3", got)
	}
}

func TestTelegramNotifyEmptyBatch(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	tg, err := NewTelegram("123:abc", "@flatshares", srv.URL+"/bot%s/%s")
	if err != nil {
		t.Fatalf("NewTelegram() error = %v", err)
	}
	tg.Notify(context.Background(), nil)

	if len(fake.sends) != 0 {
		t.Errorf("sent %d messages for an empty batch", len(fake.sends))
	}
}

func TestTelegramChannel(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	tg, err := NewTelegram("123:abc", "@flatshares", srv.URL+"/bot%s/%s")
	if err != nil {
		t.Fatalf("NewTelegram() error = %v", err)
	}
	tg.Notify(context.Background(), testBatch(1))

	if len(fake.sends) != 1 || fake.sends[0]["chat_id"] != "@flatshares" {
		t.Errorf("sends = %v", fake.sends)
	}
}

func TestNewTelegramInvalidChatID(t *testing.T) {
	if _, err := NewTelegram("123:abc", "not-a-chat", "http://127.0.0.1:0/bot%s/%s"); err == nil {
		t.Fatal("NewTelegram() error = nil for an invalid chat id")
	}
}

func TestNilTelegramIsNoop(t *testing.T) {
	var tg *Telegram
	tg.Notify(context.Background(), testBatch(2))
}

func TestBuildChatMessage(t *testing.T) {
	batch := []models.Record{{
		Listing: models.Listing{
			Title:  "Short title",
			URL:    "https://example.com/a",
			Suburb: "Surry Hills",
		},
	}}

	got := BuildChatMessage(batch)
	want := "🏳️‍🌈 1 new LGBTQ+ flatshare ads!\n\n🏠 Short title...\n📍 Surry Hills - price on request\n🔗 https://example.com/a\n\n"
	if got != want {
		t.Errorf("BuildChatMessage() = %q, want %q", got, want)
	}

	long := BuildChatMessage(testBatch(1))
	if !strings.Contains(long, "🏠 Listing 0 in a lovely queer-friendly sha...") {
		t.Errorf("title not cut at 40 runes: %q", long)
	}
}
