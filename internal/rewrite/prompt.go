package rewrite

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxPromptContentRunes bounds the article text embedded in a prompt.
const maxPromptContentRunes = 10000

// BuildPrompt assembles the full outbound prompt for one item. The cache key
// is a hash of this entire string, instructions included, so any change to
// the instructions invalidates old cache entries naturally.
func BuildPrompt(title, content string) string {
	content = strings.ReplaceAll(content, "\r", "")
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) > maxPromptContentRunes {
		runes := []rune(content)
		trimmed := string(runes[:maxPromptContentRunes])
		// Prefer ending on a sentence when enough text is left.
		if idx := strings.LastIndex(trimmed, ". "); idx > 1200 {
			trimmed = trimmed[:idx+1]
		}
		content = trimmed
	}

	return fmt.Sprintf(`Ты редактор новостного Telegram-канала про жизнь в Испании.
Прочитай заголовок и текст статьи, затем:

1. Переведи заголовок на русский язык и немного переформулируй его, сохраняя суть. Заголовок должен быть кратким (до 10 слов).
2. Создай краткую выжимку статьи на русском языке (5-8 предложений). Сохрани все ключевые факты, цифры и детали. Не добавляй мнений, только нейтральный пересказ.
3. Подбери 2-4 тематических тега на русском языке, в нижнем регистре, одним словом каждый.

Ответь строго одним JSON-объектом без пояснений и без обрамления в код:
{"title": "...", "body": "...", "tags": ["...", "..."]}

Заголовок: %s

Текст статьи: %s`, title, content)
}

// PromptHash returns the deterministic cache key for a prompt.
func PromptHash(prompt string) string {
	h := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(h[:])
}
