// Package app wires the pipeline together and runs the event loop. All
// state transitions happen on one goroutine: cycle ticks, fired publication
// jobs, and admin updates are serialized through a single select.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"espanews/internal/config"
	"espanews/internal/dedup"
	"espanews/internal/filter"
	"espanews/internal/gate"
	"espanews/internal/ledger"
	"espanews/internal/logger"
	"espanews/internal/model"
	"espanews/internal/rewrite"
	"espanews/internal/rss"
	"espanews/internal/scheduler"
	"espanews/internal/scraper"
	"espanews/internal/telegram"
)

type feedFetcher interface {
	FetchAll(ctx context.Context, sources []rss.Source) []model.Item
}

type articleExtractor interface {
	ExtractOrFallback(ctx context.Context, url, description string) string
}

type rewriter interface {
	Rewrite(ctx context.Context, title, content string) (model.RewriteResult, error)
}

type messenger interface {
	PublishPost(post model.Post) error
	SendReview(post model.Post, token string) error
	SendMessage(chatID int64, text string)
	SendAdmin(text string)
	AckCallback(id string)
	RemoveKeyboard(chatID int64, messageID int)
	Updates() tgbotapi.UpdatesChannel
	Stop()
}

// App owns every pipeline component and the pending review state.
type App struct {
	cfg     *config.Config
	sources []rss.Source

	fetcher  feedFetcher
	scraper  articleExtractor
	filter   *filter.Filter
	dedup    *dedup.Tracker
	ledger   *ledger.Ledger
	rewriter rewriter
	gate     *gate.Gate
	sched    *scheduler.Scheduler
	mode     *scheduler.ModeStore
	tg       messenger

	// pending holds posts awaiting an admin decision, keyed by the token
	// embedded in the review keyboard. Only the event loop touches it.
	pending map[string]model.Post
	seq     int
}

// New builds the full pipeline from config.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	sources, err := rss.LoadFeeds(cfg.FeedsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load feeds: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no feeds configured in %s", cfg.FeedsConfigPath)
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	gem, err := rewrite.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("init gemini: %w", err)
	}
	backends := []rewrite.Backend{gem}
	if cfg.OpenAIAPIKey != "" {
		backends = append(backends, rewrite.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel))
	}

	engine := rewrite.NewEngine(backends, rewrite.NewCache(cfg.RewriteCachePath), rewrite.Config{
		MaxAttempts:    cfg.MaxRetries,
		BaseDelay:      cfg.RetryBaseDelay,
		RateLimitDelay: cfg.RateLimitDelay,
	})

	tg, err := telegram.New(cfg.TelegramToken, cfg.TelegramChannelID, cfg.AdminChatID)
	if err != nil {
		return nil, fmt.Errorf("init telegram: %w", err)
	}

	return &App{
		cfg:      cfg,
		sources:  sources,
		fetcher:  rss.NewFetcher(httpClient, cfg.NewsMaxAge),
		scraper:  scraper.New(httpClient),
		filter:   filter.New(cfg.PromoWeakThreshold, cfg.PromoStrongThreshold),
		dedup:    dedup.New(cfg.DedupFilePath),
		ledger:   ledger.New(cfg.LedgerFilePath, cfg.LedgerTTL),
		rewriter: engine,
		gate: &gate.Gate{
			MinTags:           cfg.MinTags,
			LanguageThreshold: cfg.LanguageThreshold,
			MaxLen:            telegram.MaxMessageLen,
			Render:            telegram.FormatPostRaw,
		},
		sched:   scheduler.New(),
		mode:    scheduler.NewModeStore(cfg.ModeFilePath),
		tg:      tg,
		pending: make(map[string]model.Post),
	}, nil
}

// Run executes the event loop until ctx is cancelled. The first cycle runs
// immediately, then on every pipeline tick.
func (a *App) Run(ctx context.Context) {
	updates := a.tg.Updates()
	ticker := time.NewTicker(a.cfg.PipelineInterval)
	defer ticker.Stop()

	logger.Info("pipeline started",
		"feeds", len(a.sources),
		"interval", a.cfg.PipelineInterval.String(),
		"mode", string(a.mode.Get()),
	)
	a.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			a.sched.Stop()
			a.tg.Stop()
			logger.Info("pipeline stopped")
			return
		case <-ticker.C:
			a.runCycle(ctx)
		case job := <-a.sched.Fired():
			a.publish(job.Post)
		case update := <-updates:
			a.handleUpdate(ctx, update)
		}
	}
}
