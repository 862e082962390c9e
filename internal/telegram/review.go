package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Review actions carried in callback data as "<action>:<token>:<minutes>".
const (
	ActionPublish = "pub"
	ActionSkip    = "skip"
)

// Decision is a parsed review callback.
type Decision struct {
	Action       string
	Token        string
	DelayMinutes int
}

// ReviewKeyboard builds the scheduling keyboard for one reviewed post. The
// token ties the button press back to the pending post; delays mirror what
// an editor actually picks by hand.
func ReviewKeyboard(token string) tgbotapi.InlineKeyboardMarkup {
	pub := func(label string, minutes int) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(label,
			fmt.Sprintf("%s:%s:%d", ActionPublish, token, minutes))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			pub("Сейчас", 0),
			pub("Через 30 мин", 30),
		),
		tgbotapi.NewInlineKeyboardRow(
			pub("Через 1 час", 60),
			pub("Через 2 часа", 120),
		),
		tgbotapi.NewInlineKeyboardRow(
			pub("Через 3 часа", 180),
			tgbotapi.NewInlineKeyboardButtonData("Пропустить",
				fmt.Sprintf("%s:%s:0", ActionSkip, token)),
		),
	)
}

// ParseDecision parses review callback data. Unknown or malformed data
// returns an error; stale tokens are the caller's problem.
func ParseDecision(data string) (Decision, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return Decision{}, fmt.Errorf("malformed callback data %q", data)
	}

	action := parts[0]
	if action != ActionPublish && action != ActionSkip {
		return Decision{}, fmt.Errorf("unknown action %q", action)
	}

	minutes, err := strconv.Atoi(parts[2])
	if err != nil || minutes < 0 {
		return Decision{}, fmt.Errorf("bad delay in callback data %q", data)
	}

	return Decision{Action: action, Token: parts[1], DelayMinutes: minutes}, nil
}
