package rewrite

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"espanews/internal/model"
)

// leadInPhrases are boilerplate openers models like to prepend even when told
// not to. Stripped before any parsing.
var leadInPhrases = []string{
	"Вот краткая выжимка:",
	"Краткая выжимка:",
	"Вот краткое изложение:",
	"Краткое изложение:",
	"Вот перевод:",
	"Перевод:",
	"Вот заголовок:",
	"Заголовок:",
	"Вот пересказ:",
	"Пересказ:",
	"Вот новость:",
	"Новость:",
}

var (
	codeFenceRe  = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	tagTokenRe   = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
	titleLabelRe = regexp.MustCompile(`(?i)^(заголовок|título|title)\s*:\s*`)
	tagsLabelRe  = regexp.MustCompile(`(?i)^(теги|тэги|tags)\s*:\s*`)
)

// structuredResponse is the shape the prompt asks the model to return.
type structuredResponse struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// ParseResponse turns raw model output into a rewrite result. Strict
// structured parsing is tried first; when that fails the heuristic extractor
// takes over. An error means the output is unusable and the attempt should be
// retried.
func ParseResponse(raw string) (model.RewriteResult, error) {
	if res, err := parseStructured(raw); err == nil {
		return res, nil
	}
	return parseHeuristic(raw)
}

// parseStructured requires a well-formed JSON object with non-empty title and
// body. Code fences around the object are tolerated, nothing else is.
func parseStructured(raw string) (model.RewriteResult, error) {
	text := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var resp structuredResponse
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&resp); err != nil {
		return model.RewriteResult{}, fmt.Errorf("not a structured response: %w", err)
	}

	title := cleanText(resp.Title)
	body := cleanText(resp.Body)
	if title == "" || body == "" {
		return model.RewriteResult{}, fmt.Errorf("structured response missing fields (title=%t body=%t)", title != "", body != "")
	}

	return model.RewriteResult{
		Title:  title,
		Body:   body,
		Tags:   normalizeTags(resp.Tags),
		Origin: model.OriginStructured,
	}, nil
}

// parseHeuristic recovers what it can from free-form output: tag-like tokens
// anywhere in the text, a labeled title line if present, otherwise a short
// first line as the title guess with the whole remaining text as the body.
// The result is accepted only if both title and body end up non-empty.
func parseHeuristic(raw string) (model.RewriteResult, error) {
	text := cleanText(raw)
	if text == "" {
		return model.RewriteResult{}, fmt.Errorf("empty response")
	}

	var tags []string
	for _, m := range tagTokenRe.FindAllStringSubmatch(text, -1) {
		tags = append(tags, strings.ToLower(m[1]))
	}

	var title string
	var bodyLines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := tagsLabelRe.FindString(line); m != "" {
			for _, t := range strings.FieldsFunc(strings.TrimPrefix(line, m), func(r rune) bool {
				return r == ',' || r == ' '
			}) {
				tags = append(tags, strings.ToLower(strings.Trim(t, "#")))
			}
			continue
		}
		if title == "" {
			if m := titleLabelRe.FindString(line); m != "" {
				title = cleanText(strings.TrimPrefix(line, m))
				continue
			}
		}
		bodyLines = append(bodyLines, line)
	}

	body := strings.Join(bodyLines, "\n")
	if title == "" && len(bodyLines) > 0 {
		// A short first line reads like a headline; take it as the guess.
		first := bodyLines[0]
		if utf8.RuneCountInString(first) <= 120 {
			title = first
			body = strings.Join(bodyLines[1:], "\n")
		} else {
			title = truncateRunes(first, 80)
		}
	}

	title = cleanText(title)
	body = cleanText(body)
	if title == "" || body == "" {
		return model.RewriteResult{}, fmt.Errorf("heuristic extraction failed (title=%t body=%t)", title != "", body != "")
	}

	return model.RewriteResult{
		Title:  title,
		Body:   body,
		Tags:   normalizeTags(tags),
		Origin: model.OriginHeuristic,
	}, nil
}

// cleanText strips lead-in phrases and wrapping quotes.
func cleanText(s string) string {
	result := strings.TrimSpace(s)

	for _, phrase := range leadInPhrases {
		if strings.HasPrefix(result, phrase) {
			result = strings.TrimSpace(strings.TrimPrefix(result, phrase))
		}
	}

	if len(result) >= 2 {
		if (strings.HasPrefix(result, `"`) && strings.HasSuffix(result, `"`)) ||
			(strings.HasPrefix(result, "'") && strings.HasSuffix(result, "'")) ||
			(strings.HasPrefix(result, "«") && strings.HasSuffix(result, "»")) {
			result = strings.TrimSpace(result[len(leftQuote(result)) : len(result)-len(rightQuote(result))])
		}
	}

	return result
}

func leftQuote(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	return string(r)
}

func rightQuote(s string) string {
	r, _ := utf8.DecodeLastRuneInString(s)
	return string(r)
}

// normalizeTags lowercases, trims, and dedups tags preserving order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(t), "#")))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
