package app

import (
	"fmt"
	"strings"

	"espanews/internal/scheduler"
)

// Report is the outcome summary of one pipeline cycle.
type Report struct {
	Fetched        int
	KnownURL       int
	Promo          int
	RewriteFailed  int
	GateRejected   int
	TextDuplicates int
	Accepted       int
	Mode           scheduler.Mode
}

// String renders the cycle digest sent to the admin chat.
func (r Report) String() string {
	var b strings.Builder
	b.WriteString("Итоги цикла:\n")
	fmt.Fprintf(&b, "получено: %d\n", r.Fetched)

	dropped := r.KnownURL + r.Promo + r.RewriteFailed + r.GateRejected + r.TextDuplicates
	if dropped > 0 {
		fmt.Fprintf(&b, "отсеяно: %d", dropped)
		var parts []string
		if r.KnownURL > 0 {
			parts = append(parts, fmt.Sprintf("уже обработано %d", r.KnownURL))
		}
		if r.Promo > 0 {
			parts = append(parts, fmt.Sprintf("реклама %d", r.Promo))
		}
		if r.RewriteFailed > 0 {
			parts = append(parts, fmt.Sprintf("ошибки обработки %d", r.RewriteFailed))
		}
		if r.GateRejected > 0 {
			parts = append(parts, fmt.Sprintf("не прошло проверку %d", r.GateRejected))
		}
		if r.TextDuplicates > 0 {
			parts = append(parts, fmt.Sprintf("похожие %d", r.TextDuplicates))
		}
		fmt.Fprintf(&b, " (%s)\n", strings.Join(parts, ", "))
	}

	fmt.Fprintf(&b, "принято: %d\n", r.Accepted)
	if r.Accepted > 0 {
		if r.Mode == scheduler.ModeAuto {
			b.WriteString("режим: авто, публикации запланированы")
		} else {
			b.WriteString("режим: ручной, новости отправлены на проверку")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
