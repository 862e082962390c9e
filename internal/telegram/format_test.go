package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"espanews/internal/model"
)

func testPost() model.Post {
	return model.Post{
		Item: model.Item{Link: "https://elpais.com/espana/ley.html"},
		Rewrite: model.RewriteResult{
			Title: "Принят закон о жилье",
			Body:  "Парламент Испании одобрил закон об аренде.",
			Tags:  []string{"испания", "законы"},
		},
	}
}

func TestFormatPost(t *testing.T) {
	got := FormatPost(testPost())

	if !strings.HasPrefix(got, "<b>Принят закон о жилье</b>\n\n") {
		t.Errorf("title not bold at the top:\n%s", got)
	}
	if !strings.Contains(got, "#испания #законы") {
		t.Errorf("tag line missing:\n%s", got)
	}
	if !strings.Contains(got, `<a href="https://elpais.com/espana/ley.html">Источник</a>`) {
		t.Errorf("source link missing:\n%s", got)
	}
}

func TestFormatPostEscapesHTML(t *testing.T) {
	post := testPost()
	post.Rewrite.Title = "Рост цен <5% & налоги"

	got := FormatPost(post)
	if !strings.Contains(got, "&lt;5% &amp; налоги") {
		t.Errorf("HTML not escaped:\n%s", got)
	}
}

func TestFormatPostFitsLimit(t *testing.T) {
	post := testPost()
	post.Rewrite.Body = strings.Repeat("Очень длинное предложение о жизни в Испании. ", 300)

	got := FormatPost(post)
	if n := utf8.RuneCountInString(got); n > MaxMessageLen {
		t.Errorf("formatted message is %d runes, limit %d", n, MaxMessageLen)
	}
	if !strings.Contains(got, "…") {
		t.Error("truncated body should end with an ellipsis")
	}
	if !strings.Contains(got, "Источник") {
		t.Error("source link lost during truncation")
	}
}

func TestFormatPostRawKeepsFullBody(t *testing.T) {
	post := testPost()
	post.Rewrite.Body = strings.Repeat("Очень длинное предложение о жизни в Испании. ", 300)

	got := FormatPostRaw(post)
	if utf8.RuneCountInString(got) <= MaxMessageLen {
		t.Error("raw render should exceed the limit for an oversized body")
	}
	if strings.Contains(got, "…") {
		t.Error("raw render must not truncate")
	}
}

func TestFormatPostNoTagsNoLink(t *testing.T) {
	post := model.Post{Rewrite: model.RewriteResult{Title: "Заголовок", Body: "Текст."}}

	got := FormatPost(post)
	if strings.Contains(got, "#") || strings.Contains(got, "Источник") {
		t.Errorf("unexpected tail sections:\n%s", got)
	}
}

func TestReviewDecisionRoundTrip(t *testing.T) {
	keyboard := ReviewKeyboard("tok42")

	var datas []string
	for _, row := range keyboard.InlineKeyboard {
		for _, btn := range row {
			datas = append(datas, *btn.CallbackData)
		}
	}
	if len(datas) != 6 {
		t.Fatalf("expected 6 buttons, got %d", len(datas))
	}

	wantDelays := []int{0, 30, 60, 120, 180}
	for i, data := range datas[:5] {
		d, err := ParseDecision(data)
		if err != nil {
			t.Fatalf("ParseDecision(%q): %v", data, err)
		}
		if d.Action != ActionPublish || d.Token != "tok42" || d.DelayMinutes != wantDelays[i] {
			t.Errorf("button %d parsed as %+v", i, d)
		}
	}

	d, err := ParseDecision(datas[5])
	if err != nil {
		t.Fatalf("ParseDecision(skip): %v", err)
	}
	if d.Action != ActionSkip || d.Token != "tok42" {
		t.Errorf("skip button parsed as %+v", d)
	}
}

func TestParseDecisionRejectsGarbage(t *testing.T) {
	for _, data := range []string{"", "pub", "pub:tok", "fire:tok:0", "pub:tok:х", "pub:tok:-5"} {
		if _, err := ParseDecision(data); err == nil {
			t.Errorf("ParseDecision(%q) expected error", data)
		}
	}
}
