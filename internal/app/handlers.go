package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"espanews/internal/logger"
	"espanews/internal/metrics"
	"espanews/internal/scheduler"
	"espanews/internal/telegram"
)

const helpText = `Команды:
/mode — показать режим публикации
/mode auto — публиковать автоматически по расписанию
/mode manual — отправлять каждую новость на проверку
/status — состояние бота и очередь публикаций
/run — запустить цикл обработки сейчас
/help — эта справка`

func (a *App) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		a.handleCallback(update.CallbackQuery)
		return
	}
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	chatID := update.Message.Chat.ID
	if !a.cfg.IsUserAllowed(update.Message.From.ID) {
		logger.Warn("command from unknown user",
			"user_id", update.Message.From.ID,
			"username", update.Message.From.UserName,
		)
		a.tg.SendMessage(chatID, "Доступ запрещён.")
		return
	}

	cmd := update.Message.Command()
	args := strings.TrimSpace(update.Message.CommandArguments())
	logger.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start", "help":
		a.tg.SendMessage(chatID, helpText)
	case "mode":
		a.handleMode(chatID, args)
	case "status":
		a.tg.SendMessage(chatID, a.statusText())
	case "run":
		a.tg.SendMessage(chatID, "Запускаю цикл обработки.")
		a.runCycle(ctx)
	default:
		a.tg.SendMessage(chatID, "Неизвестная команда. /help")
	}
}

func (a *App) handleMode(chatID int64, args string) {
	switch args {
	case "":
		a.tg.SendMessage(chatID, "Текущий режим: "+modeLabel(a.mode.Get()))
	case "auto":
		a.mode.Set(scheduler.ModeAuto)
		a.tg.SendMessage(chatID, "Режим переключён: публикация по расписанию.")
	case "manual":
		a.mode.Set(scheduler.ModeManual)
		a.tg.SendMessage(chatID, "Режим переключён: каждая новость на проверку.")
	default:
		a.tg.SendMessage(chatID, "Использование: /mode auto | manual")
	}
}

func (a *App) handleCallback(cb *tgbotapi.CallbackQuery) {
	a.tg.AckCallback(cb.ID)

	if !a.cfg.IsUserAllowed(cb.From.ID) {
		logger.Warn("callback from unknown user", "user_id", cb.From.ID)
		return
	}

	d, err := telegram.ParseDecision(cb.Data)
	if err != nil {
		logger.Warn("bad callback data", "data", cb.Data, "error", err)
		return
	}

	var chatID int64
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
		a.tg.RemoveKeyboard(chatID, cb.Message.MessageID)
	}

	post, ok := a.pending[d.Token]
	if !ok {
		// Stale button: a restart dropped the pending set, or it was
		// already pressed.
		a.tg.SendMessage(chatID, "Эта новость уже обработана.")
		return
	}
	delete(a.pending, d.Token)

	switch d.Action {
	case telegram.ActionSkip:
		logger.Info("post skipped by admin", "link", post.Item.Link)
		a.tg.SendMessage(chatID, "Пропущено: "+post.Rewrite.Title)
	case telegram.ActionPublish:
		if d.DelayMinutes == 0 {
			a.publish(post)
			a.tg.SendMessage(chatID, "Опубликовано: "+post.Rewrite.Title)
			return
		}
		delay := time.Duration(d.DelayMinutes) * time.Minute
		a.sched.Defer(post, delay)
		a.tg.SendMessage(chatID, fmt.Sprintf("Запланировано через %d мин: %s", d.DelayMinutes, post.Rewrite.Title))
	}
}

func (a *App) statusText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Режим: %s\n", modeLabel(a.mode.Get()))
	fmt.Fprintf(&b, "На проверке: %d\n", len(a.pending))

	jobs := a.sched.Jobs()
	fmt.Fprintf(&b, "В очереди публикаций: %d\n", len(jobs))
	for _, j := range jobs {
		fmt.Fprintf(&b, "  %s — %s\n", j.FireAt.Format("15:04"), j.Post.Rewrite.Title)
	}

	stats := metrics.Global.GetStats()
	fmt.Fprintf(&b, "Опубликовано всего: %v\n", stats["published"])
	fmt.Fprintf(&b, "Кэш-попадания: %.0f%%", metrics.Global.CacheHitRate())
	return b.String()
}

func modeLabel(m scheduler.Mode) string {
	if m == scheduler.ModeAuto {
		return "авто"
	}
	return "ручной"
}
