package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"espanews/internal/model"
)

const (
	// MaxMessageLen is Telegram's hard limit for a text message, in runes.
	MaxMessageLen = 4096
	// MaxCaptionLen is the limit for a photo caption.
	MaxCaptionLen = 1024
)

// FormatPostRaw renders a post as channel-ready HTML without any length
// enforcement: bold title, body, tag line, source link. The validation gate
// measures this form, so what gets measured is exactly what would be sent.
func FormatPostRaw(post model.Post) string {
	head, body, tail := formatParts(post)
	return head + body + tail
}

// FormatPost renders a post guaranteed to fit MaxMessageLen. An oversized
// body is cut on a word boundary; title, tags, and link are never cut.
func FormatPost(post model.Post) string {
	head, body, tail := formatParts(post)

	budget := MaxMessageLen - utf8.RuneCountInString(head) - utf8.RuneCountInString(tail)
	if utf8.RuneCountInString(body) > budget {
		body = truncateOnWord(body, budget-1) + "…"
	}
	return head + body + tail
}

func formatParts(post model.Post) (head, body, tail string) {
	res := post.Rewrite

	head = "<b>" + tgbotapi.EscapeText(tgbotapi.ModeHTML, res.Title) + "</b>\n\n"
	body = tgbotapi.EscapeText(tgbotapi.ModeHTML, res.Body)

	var b strings.Builder
	if len(res.Tags) > 0 {
		b.WriteString("\n\n")
		for i, tag := range res.Tags {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString("#" + tag)
		}
	}
	if post.Item.Link != "" {
		fmt.Fprintf(&b, "\n\n<a href=\"%s\">Источник</a>", post.Item.Link)
	}
	return head, body, b.String()
}

// truncateOnWord cuts s to at most n runes, preferring a word boundary when
// one is reasonably close to the limit.
func truncateOnWord(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if idx := strings.LastIndexAny(cut, " \n"); idx > n/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " \n.,;:")
}
