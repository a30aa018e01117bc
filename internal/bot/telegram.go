package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/MrSnakeDoc/leakdesk/internal/logger"
)

// maxMessageLen stays under the 4096 UTF-16 code units Telegram accepts per message.
const maxMessageLen = 4000

// Telegram is the Sender backed by the Bot API.
type Telegram struct {
	api *tgbotapi.BotAPI
	log logger.Logger
}

func NewTelegram(token string, log logger.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	log.Info("telegram bot authorized", logger.String("account", api.Self.UserName))
	return &Telegram{api: api, log: log}, nil
}

// Send delivers text as HTML, split in several messages when too long.
func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	for _, part := range splitMessage(text, maxMessageLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := t.api.Send(msg); err != nil {
			return fmt.Errorf("telegram send to %d: %w", chatID, err)
		}
	}
	return nil
}

// Run long-polls updates and hands every command to b until ctx is done.
// In-flight commands are awaited before returning.
func (t *Telegram) Run(ctx context.Context, b *Bot) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			t.log.Info("telegram polling stopped")
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			m, ok := toMessage(upd)
			if !ok {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.Handle(ctx, m)
			}()
		}
	}
}

func toMessage(upd tgbotapi.Update) (Message, bool) {
	msg := upd.Message
	if msg == nil || msg.From == nil || !msg.IsCommand() {
		return Message{}, false
	}
	return Message{
		UserID:   msg.From.ID,
		ChatID:   msg.Chat.ID,
		Username: displayName(msg.From),
		Command:  msg.Command(),
		Args:     strings.Fields(msg.CommandArguments()),
	}, true
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return fmt.Sprintf("user%d", u.ID)
	}
	return name
}

// splitMessage cuts text at line boundaries into parts of at most limit
// UTF-16 code units, the unit Telegram counts message length in.
// An open <pre> block is closed at the end of a part and reopened in the next.
func splitMessage(text string, limit int) []string {
	if textLen(text) <= limit {
		return []string{text}
	}

	const openPre, closePre = "<pre>", "</pre>"
	budget := limit - len(closePre)

	var (
		parts []string
		cur   strings.Builder
		n     int
		inPre bool
	)
	flush := func() {
		s := cur.String()
		if inPre {
			s += closePre
		}
		parts = append(parts, s)
		cur.Reset()
		n = 0
		if inPre {
			cur.WriteString(openPre)
			n = len(openPre)
		}
	}
	write := func(s string) {
		cur.WriteString(s)
		n += textLen(s)
		open, closed := strings.LastIndex(s, openPre), strings.LastIndex(s, closePre)
		switch {
		case open > closed:
			inPre = true
		case closed > open:
			inPre = false
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		size := textLen(line)
		if n+size > budget && n > 0 && !(inPre && n == len(openPre)) {
			flush()
		}
		// A single line longer than a whole part is cut on a rune boundary.
		for textLen(line) > budget-n {
			cut := fitPrefix(line, budget-n)
			write(line[:cut])
			line = line[cut:]
			flush()
		}
		write(line)
	}
	if n > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// textLen counts s in UTF-16 code units.
func textLen(s string) int {
	n := 0
	for _, r := range s {
		n += max(utf16.RuneLen(r), 1)
	}
	return n
}

// fitPrefix returns the byte length of the longest prefix of s that fits
// in room UTF-16 code units.
func fitPrefix(s string, room int) int {
	n := 0
	for i, r := range s {
		n += max(utf16.RuneLen(r), 1)
		if n > room {
			return i
		}
	}
	return len(s)
}
