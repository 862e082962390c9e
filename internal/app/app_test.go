package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"espanews/internal/config"
	"espanews/internal/dedup"
	"espanews/internal/filter"
	"espanews/internal/gate"
	"espanews/internal/ledger"
	"espanews/internal/model"
	"espanews/internal/rss"
	"espanews/internal/scheduler"
	"espanews/internal/telegram"
)

type fakeFetcher struct {
	items []model.Item
}

func (f *fakeFetcher) FetchAll(_ context.Context, _ []rss.Source) []model.Item {
	return f.items
}

type fakeScraper struct{}

func (fakeScraper) ExtractOrFallback(_ context.Context, _, description string) string {
	return description
}

type fakeRewriter struct {
	calls   int
	err     error
	results map[string]model.RewriteResult
}

func goodResult() model.RewriteResult {
	return model.RewriteResult{
		Title:  "Принят закон о жилье",
		Body:   "Парламент Испании одобрил закон об аренде жилья.",
		Tags:   []string{"испания", "законы"},
		Origin: model.OriginStructured,
	}
}

func (r *fakeRewriter) Rewrite(_ context.Context, title, _ string) (model.RewriteResult, error) {
	r.calls++
	if r.err != nil {
		return model.RewriteResult{}, r.err
	}
	if res, ok := r.results[title]; ok {
		return res, nil
	}
	return goodResult(), nil
}

type fakeMessenger struct {
	published []model.Post
	reviews   []string
	admin     []string
	messages  []string
	updates   chan tgbotapi.Update
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{updates: make(chan tgbotapi.Update)}
}

func (m *fakeMessenger) PublishPost(post model.Post) error {
	m.published = append(m.published, post)
	return nil
}

func (m *fakeMessenger) SendReview(_ model.Post, token string) error {
	m.reviews = append(m.reviews, token)
	return nil
}

func (m *fakeMessenger) SendMessage(_ int64, text string) { m.messages = append(m.messages, text) }
func (m *fakeMessenger) SendAdmin(text string)            { m.admin = append(m.admin, text) }
func (m *fakeMessenger) AckCallback(_ string)             {}
func (m *fakeMessenger) RemoveKeyboard(_ int64, _ int)    {}
func (m *fakeMessenger) Updates() tgbotapi.UpdatesChannel { return m.updates }
func (m *fakeMessenger) Stop()                            {}

func newTestApp(t *testing.T, items []model.Item, rw rewriter) (*App, *fakeMessenger) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		AdminChatID:         1,
		SimilarityThreshold: 0.85,
		LanguageThreshold:   0.8,
		MinTags:             2,
		PublishWindow:       120 * time.Minute,
		DedupTTL:            24 * time.Hour,
		LedgerTTL:           14 * 24 * time.Hour,
		PipelineInterval:    time.Hour,
	}

	tg := newFakeMessenger()
	a := &App{
		cfg:      cfg,
		sources:  []rss.Source{{Name: "test", URL: "https://example.com/rss"}},
		fetcher:  &fakeFetcher{items: items},
		scraper:  fakeScraper{},
		filter:   filter.New(3, 1),
		dedup:    dedup.New(filepath.Join(dir, "urls.json")),
		ledger:   ledger.New(filepath.Join(dir, "ledger.json"), cfg.LedgerTTL),
		rewriter: rw,
		gate: &gate.Gate{
			MinTags:           cfg.MinTags,
			LanguageThreshold: cfg.LanguageThreshold,
			MaxLen:            telegram.MaxMessageLen,
			Render:            telegram.FormatPostRaw,
		},
		sched:   scheduler.New(),
		mode:    scheduler.NewModeStore(filepath.Join(dir, "mode.json")),
		tg:      tg,
		pending: make(map[string]model.Post),
	}
	t.Cleanup(a.sched.Stop)
	return a, tg
}

func newsItem(title, link string) model.Item {
	return model.Item{
		Title:       title,
		Link:        link,
		Description: "La norma limita el precio del alquiler en zonas tensionadas.",
		Published:   time.Now(),
		Source:      "test",
	}
}

func TestRunCycleManualMode(t *testing.T) {
	items := []model.Item{
		newsItem("Ley de vivienda", "https://example.com/1"),
	}
	a, tg := newTestApp(t, items, &fakeRewriter{})

	a.runCycle(context.Background())

	if len(tg.reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(tg.reviews))
	}
	if len(tg.published) != 0 {
		t.Errorf("manual mode must not publish directly")
	}
	if len(a.pending) != 1 {
		t.Errorf("pending = %d, want 1", len(a.pending))
	}
	if !a.dedup.IsKnown("https://example.com/1") {
		t.Error("processed URL not recorded")
	}
}

func TestRunCycleAutoModePlans(t *testing.T) {
	items := []model.Item{
		newsItem("Ley de vivienda", "https://example.com/1"),
	}
	rw := &fakeRewriter{results: map[string]model.RewriteResult{}}
	a, tg := newTestApp(t, items, rw)
	a.mode.Set(scheduler.ModeAuto)

	a.runCycle(context.Background())

	if len(tg.reviews) != 0 {
		t.Errorf("auto mode must not send reviews")
	}
	jobs := a.sched.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 planned job, got %d", len(jobs))
	}
	if !strings.HasPrefix(jobs[0].ID, "plan/") {
		t.Errorf("job id = %q, want plan/ prefix", jobs[0].ID)
	}
}

func TestRunCycleSkipsKnownURL(t *testing.T) {
	items := []model.Item{newsItem("Ley de vivienda", "https://example.com/1")}
	rw := &fakeRewriter{}
	a, _ := newTestApp(t, items, rw)
	a.dedup.Record("https://example.com/1")

	a.runCycle(context.Background())

	if rw.calls != 0 {
		t.Errorf("known URL reached the rewriter, calls = %d", rw.calls)
	}
}

func TestRunCycleDropsPromo(t *testing.T) {
	item := newsItem("Contenido patrocinado: gran oferta", "https://example.com/promo")
	rw := &fakeRewriter{}
	a, _ := newTestApp(t, []model.Item{item}, rw)

	a.runCycle(context.Background())

	if rw.calls != 0 {
		t.Error("promo item reached the rewriter")
	}
	if !a.dedup.IsKnown(item.Link) {
		t.Error("promo rejection must still record the URL")
	}
}

func TestRunCycleGateRejects(t *testing.T) {
	item := newsItem("Ley de vivienda", "https://example.com/1")
	rw := &fakeRewriter{results: map[string]model.RewriteResult{
		"Ley de vivienda": {
			Title: "El parlamento aprueba la ley",
			Body:  "Texto sin traducir que no pasa el control.",
			Tags:  []string{"испания", "законы"},
		},
	}}
	a, tg := newTestApp(t, []model.Item{item}, rw)

	a.runCycle(context.Background())

	if len(tg.reviews) != 0 || len(a.pending) != 0 {
		t.Error("rejected post must not reach review")
	}
	if !a.dedup.IsKnown(item.Link) {
		t.Error("gate rejection must still record the URL")
	}
}

func TestRunCycleDropsNearDuplicate(t *testing.T) {
	item := newsItem("Ley de vivienda", "https://example.com/1")
	a, tg := newTestApp(t, []model.Item{item}, &fakeRewriter{})

	res := goodResult()
	if err := a.ledger.Record(res.Title, res.Body, "https://example.com/earlier"); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	a.runCycle(context.Background())

	if len(tg.reviews) != 0 {
		t.Error("near-duplicate must not reach review")
	}
}

func TestRunCycleRewriteFailureIsTerminal(t *testing.T) {
	item := newsItem("Ley de vivienda", "https://example.com/1")
	rw := &fakeRewriter{err: errors.New("503 unavailable")}
	a, _ := newTestApp(t, []model.Item{item}, rw)

	a.runCycle(context.Background())

	if !a.dedup.IsKnown(item.Link) {
		t.Error("failed item must still be recorded")
	}

	// Next cycle must not touch the item again.
	rw.calls = 0
	a.runCycle(context.Background())
	if rw.calls != 0 {
		t.Errorf("failed item retried on next cycle, calls = %d", rw.calls)
	}
}

func reviewCallback(data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: 1},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 5,
			Chat:      &tgbotapi.Chat{ID: 1},
		},
	}
}

func TestHandleCallbackPublishNow(t *testing.T) {
	a, tg := newTestApp(t, nil, &fakeRewriter{})
	a.pending["7"] = model.Post{Item: newsItem("x", "https://example.com/1"), Rewrite: goodResult()}

	a.handleCallback(reviewCallback("pub:7:0"))

	if len(tg.published) != 1 {
		t.Fatalf("expected immediate publication, got %d", len(tg.published))
	}
	if len(a.pending) != 0 {
		t.Error("pending entry not cleared")
	}
	if a.ledger.Len() != 1 {
		t.Errorf("publication not recorded in ledger, len = %d", a.ledger.Len())
	}
}

func TestHandleCallbackDefer(t *testing.T) {
	a, tg := newTestApp(t, nil, &fakeRewriter{})
	a.pending["7"] = model.Post{Item: newsItem("x", "https://example.com/1"), Rewrite: goodResult()}

	a.handleCallback(reviewCallback("pub:7:60"))

	if len(tg.published) != 0 {
		t.Error("deferred post published immediately")
	}
	jobs := a.sched.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 deferred job, got %d", len(jobs))
	}
	if until := time.Until(jobs[0].FireAt); until < 59*time.Minute || until > 61*time.Minute {
		t.Errorf("deferred job fires in %v, want about 1h", until)
	}
}

func TestHandleCallbackSkip(t *testing.T) {
	a, tg := newTestApp(t, nil, &fakeRewriter{})
	a.pending["7"] = model.Post{Item: newsItem("x", "https://example.com/1"), Rewrite: goodResult()}

	a.handleCallback(reviewCallback("skip:7:0"))

	if len(tg.published) != 0 || len(a.sched.Jobs()) != 0 {
		t.Error("skipped post must not be published or scheduled")
	}
	if len(a.pending) != 0 {
		t.Error("pending entry not cleared")
	}
}

func TestHandleCallbackStaleToken(t *testing.T) {
	a, tg := newTestApp(t, nil, &fakeRewriter{})

	a.handleCallback(reviewCallback("pub:99:0"))

	if len(tg.published) != 0 {
		t.Error("stale token must not publish anything")
	}
	if len(tg.messages) == 0 {
		t.Error("admin should be told the token is stale")
	}
}

func TestHandleCallbackUnknownUser(t *testing.T) {
	a, tg := newTestApp(t, nil, &fakeRewriter{})
	a.pending["7"] = model.Post{Item: newsItem("x", "https://example.com/1"), Rewrite: goodResult()}

	cb := reviewCallback("pub:7:0")
	cb.From.ID = 666
	a.handleCallback(cb)

	if len(tg.published) != 0 || len(a.pending) != 1 {
		t.Error("unknown user must not trigger a publication")
	}
}

func TestModeCommand(t *testing.T) {
	a, _ := newTestApp(t, nil, &fakeRewriter{})

	a.handleMode(1, "auto")
	if a.mode.Get() != scheduler.ModeAuto {
		t.Error("mode not switched to auto")
	}
	a.handleMode(1, "manual")
	if a.mode.Get() != scheduler.ModeManual {
		t.Error("mode not switched back to manual")
	}
}
