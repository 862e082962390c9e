package gate

import (
	"strings"
	"testing"

	"espanews/internal/model"
)

func testGate() *Gate {
	return &Gate{
		MinTags:           2,
		LanguageThreshold: 0.8,
		MaxLen:            4096,
		Render:            func(p model.Post) string { return p.Rewrite.Title + "\n" + p.Rewrite.Body },
	}
}

func post(title, body string, tags ...string) model.Post {
	return model.Post{Rewrite: model.RewriteResult{Title: title, Body: body, Tags: tags}}
}

func TestCheckAccepts(t *testing.T) {
	reason, ok := testGate().Check(post(
		"Новый закон о жилье принят",
		"Парламент Испании одобрил закон. Цены выросли на 5% в 2026 году.",
		"испания", "законы",
	))
	if !ok {
		t.Errorf("expected acceptance, got %q", reason)
	}
}

func TestCheckReasons(t *testing.T) {
	tests := []struct {
		name string
		post model.Post
		want Reason
	}{
		{
			"empty title",
			post("", "Нормальный текст.", "a", "b"),
			ReasonEmptyTitle,
		},
		{
			"empty body",
			post("Нормальный заголовок", "", "a", "b"),
			ReasonEmptyBody,
		},
		{
			"untranslated title",
			post("El parlamento aprueba la ley", "Парламент одобрил закон.", "a", "b"),
			ReasonNotLanguageTitle,
		},
		{
			"untranslated body",
			post("Закон принят", "El parlamento aprueba la ley de vivienda.", "a", "b"),
			ReasonNotLanguageBody,
		},
		{
			"too few tags",
			post("Закон принят", "Парламент одобрил закон.", "испания"),
			ReasonTooFewTags,
		},
		{
			// Checks run in order; the first failure names the rejection.
			"empty title wins over missing tags",
			post("", ""),
			ReasonEmptyTitle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := testGate().Check(tt.post)
			if ok {
				t.Fatal("expected rejection")
			}
			if reason != tt.want {
				t.Errorf("reason = %q, want %q", reason, tt.want)
			}
		})
	}
}

func TestCheckMessageTooLong(t *testing.T) {
	body := strings.Repeat("Очень длинный текст. ", 250)
	reason, ok := testGate().Check(post("Закон принят", body, "a", "b"))
	if ok {
		t.Fatal("expected rejection")
	}
	if reason != ReasonMessageTooLong {
		t.Errorf("reason = %q, want message_too_long", reason)
	}
}

func TestCyrillicRatio(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"pure russian", "только кириллица", 1.0},
		{"pure spanish", "solo latino", 0.0},
		{"digits ignored", "цены выросли на 5%", 1.0},
		{"no letters", "2026 — 5%", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cyrillicRatio(tt.in); got != tt.want {
				t.Errorf("cyrillicRatio(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCheckThresholdInclusive(t *testing.T) {
	// Exactly 8 Cyrillic letters out of 10 sits on the threshold and passes.
	title := "абвгдежзab"
	reason, ok := testGate().Check(post(title, "Парламент одобрил закон.", "a", "b"))
	if !ok {
		t.Errorf("ratio at threshold should pass, got %q", reason)
	}
}
