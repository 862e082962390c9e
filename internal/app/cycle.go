package app

import (
	"context"
	"strconv"
	"time"

	"espanews/internal/logger"
	"espanews/internal/metrics"
	"espanews/internal/model"
	"espanews/internal/scheduler"
)

// runCycle is one full pass: expire old URL records, fetch, and walk every
// item through the dedup, filter, rewrite, gate, and near-duplicate stages.
// Rejection at any stage is terminal for the item; the URL is recorded so
// the next cycle skips it outright.
func (a *App) runCycle(ctx context.Context) {
	start := time.Now()

	if removed := a.dedup.Cleanup(a.cfg.DedupTTL); removed > 0 {
		logger.Debug("url records expired", "removed", removed)
	}

	items := a.fetcher.FetchAll(ctx, a.sources)
	rep := Report{Fetched: len(items)}

	var accepted []model.Post
	for _, item := range items {
		// Record returns false for an already-known URL; the check and the
		// insert are one operation, so an item is claimed exactly once.
		if !a.dedup.Record(item.Link) {
			rep.KnownURL++
			metrics.Global.IncrementDuplicatesURL()
			continue
		}

		if promo, markers := a.filter.IsPromo(item); promo {
			rep.Promo++
			logger.Debug("promo item dropped", "link", item.Link, "markers", markers)
			continue
		}

		content := a.scraper.ExtractOrFallback(ctx, item.Link, item.Description)

		res, err := a.rewriter.Rewrite(ctx, item.Title, content)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			rep.RewriteFailed++
			metrics.Global.IncrementRewriteFailures()
			logger.Error("rewrite failed", "link", item.Link, "error", err)
			continue
		}

		post := model.Post{Item: item, Rewrite: res}
		if reason, ok := a.gate.Check(post); !ok {
			rep.GateRejected++
			metrics.Global.IncrementRejected(string(reason))
			logger.Info("post rejected", "link", item.Link, "reason", string(reason))
			continue
		}

		if v := a.ledger.CheckDuplicate(res.Title, res.Body, a.cfg.SimilarityThreshold); v.IsDuplicate {
			rep.TextDuplicates++
			metrics.Global.IncrementDuplicatesText()
			logger.Info("near-duplicate dropped",
				"link", item.Link,
				"score", v.Score,
				"matched_by", v.MatchedBy,
			)
			continue
		}

		accepted = append(accepted, post)
	}
	rep.Accepted = len(accepted)
	rep.Mode = a.mode.Get()

	if len(accepted) > 0 {
		if rep.Mode == scheduler.ModeAuto {
			a.sched.Plan(accepted, a.cfg.PublishWindow)
		} else {
			for _, post := range accepted {
				a.queueReview(post)
			}
		}
	}

	metrics.Global.RecordCycleTime(time.Since(start))
	metrics.Global.SetLastRun()
	logger.Info("cycle finished",
		"fetched", rep.Fetched,
		"known_url", rep.KnownURL,
		"promo", rep.Promo,
		"rewrite_failed", rep.RewriteFailed,
		"gate_rejected", rep.GateRejected,
		"text_duplicates", rep.TextDuplicates,
		"accepted", rep.Accepted,
		"took", time.Since(start).String(),
	)

	if rep.Accepted > 0 || rep.RewriteFailed > 0 {
		a.tg.SendAdmin(rep.String())
	}
}

// publish sends one post to the channel and records it in the published
// ledger so future near-duplicates get caught.
func (a *App) publish(post model.Post) {
	if err := a.tg.PublishPost(post); err != nil {
		logger.Error("publish failed", "link", post.Item.Link, "error", err)
		metrics.Global.SetError(err.Error())
		return
	}
	if err := a.ledger.Record(post.Rewrite.Title, post.Rewrite.Body, post.Item.Link); err != nil {
		logger.Error("ledger record failed", "link", post.Item.Link, "error", err)
	}
	metrics.Global.IncrementPublished()
	logger.Info("published", "title", post.Rewrite.Title, "link", post.Item.Link)
}

// queueReview sends a post to the admin with the scheduling keyboard and
// parks it until a button is pressed.
func (a *App) queueReview(post model.Post) {
	a.seq++
	token := strconv.Itoa(a.seq)
	a.pending[token] = post

	if err := a.tg.SendReview(post, token); err != nil {
		logger.Error("review send failed", "link", post.Item.Link, "error", err)
		delete(a.pending, token)
	}
}
