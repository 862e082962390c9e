package rewrite

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"espanews/internal/model"
)

func TestParseResponseStructured(t *testing.T) {
	raw := `{"title": "Новый закон о жилье", "body": "Парламент одобрил закон.", "tags": ["#Испания", "Законы", "испания"]}`

	got, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}

	want := model.RewriteResult{
		Title:  "Новый закон о жилье",
		Body:   "Парламент одобрил закон.",
		Tags:   []string{"испания", "законы"},
		Origin: model.OriginStructured,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResponseFencedJSON(t *testing.T) {
	raw := "```json\n{\"title\": \"Заголовок\", \"body\": \"Текст.\", \"tags\": [\"экономика\"]}\n```"

	got, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got.Origin != model.OriginStructured {
		t.Errorf("Origin = %v, want structured", got.Origin)
	}
	if got.Title != "Заголовок" || got.Body != "Текст." {
		t.Errorf("unexpected fields: %+v", got)
	}
}

func TestParseResponseHeuristicLabeled(t *testing.T) {
	raw := "Заголовок: Новый закон о жилье\nПарламент одобрил закон после долгих дебатов.\nТеги: испания, законы"

	got, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got.Origin != model.OriginHeuristic {
		t.Errorf("Origin = %v, want heuristic", got.Origin)
	}
	if got.Title != "Новый закон о жилье" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Body != "Парламент одобрил закон после долгих дебатов." {
		t.Errorf("Body = %q", got.Body)
	}
	if diff := cmp.Diff([]string{"испания", "законы"}, got.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResponseHeuristicFirstLineTitle(t *testing.T) {
	raw := "Новый закон принят\nПарламент одобрил закон.\n#Испания #Законы"

	got, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got.Title != "Новый закон принят" {
		t.Errorf("Title = %q", got.Title)
	}
	if !strings.Contains(got.Body, "Парламент одобрил закон.") {
		t.Errorf("Body = %q", got.Body)
	}
	if diff := cmp.Diff([]string{"испания", "законы"}, got.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResponseLongFirstLineTruncated(t *testing.T) {
	long := strings.Repeat("слово ", 40)
	got, err := ParseResponse(long)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if len([]rune(got.Title)) > 80 {
		t.Errorf("title not truncated, %d runes", len([]rune(got.Title)))
	}
}

func TestParseResponseStripsLeadIn(t *testing.T) {
	raw := "Вот краткая выжимка:\nНовый закон принят\nПарламент одобрил закон."

	got, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if strings.Contains(got.Title, "выжимка") || strings.Contains(got.Body, "выжимка") {
		t.Errorf("lead-in phrase survived: %+v", got)
	}
	if got.Title != "Новый закон принят" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestParseResponseUnusable(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\n"} {
		if _, err := ParseResponse(raw); err == nil {
			t.Errorf("ParseResponse(%q) expected error", raw)
		}
	}
}

func TestCleanTextQuotes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"В кавычках"`, "В кавычках"},
		{"«В ёлочках»", "В ёлочках"},
		{"Без кавычек", "Без кавычек"},
		{`"Открытая без закрытия`, `"Открытая без закрытия`},
	}
	for _, tt := range tests {
		if got := cleanText(tt.in); got != tt.want {
			t.Errorf("cleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	got := normalizeTags([]string{" #Испания ", "законы", "#законы", "", "  "})
	want := []string{"испания", "законы"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("normalizeTags mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPromptCollapsesWhitespace(t *testing.T) {
	prompt := BuildPrompt("Título", "línea  uno\n\n  línea dos\r\n")
	if !strings.Contains(prompt, "línea uno línea dos") {
		t.Errorf("whitespace not collapsed:\n%s", prompt)
	}
}

func TestBuildPromptCapsContent(t *testing.T) {
	long := strings.Repeat("palabra ", 5000)
	prompt := BuildPrompt("t", long)
	if len([]rune(prompt)) > maxPromptContentRunes+2000 {
		t.Errorf("prompt not capped, %d runes", len([]rune(prompt)))
	}
}

func TestPromptHashDeterministic(t *testing.T) {
	a := PromptHash(BuildPrompt("t", "c"))
	b := PromptHash(BuildPrompt("t", "c"))
	c := PromptHash(BuildPrompt("t", "otro"))
	if a != b {
		t.Error("identical prompts hash differently")
	}
	if a == c {
		t.Error("distinct prompts share a hash")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
}
