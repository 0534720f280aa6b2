package render

import (
	"errors"
	"fmt"
	"html"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"giftboard/internal/logging"
	"giftboard/internal/metrics"
	"giftboard/internal/model"
)

// ErrRowRender marks a record that cannot produce a normal row.
var ErrRowRender = errors.New("row render failed")

// Picker chooses decorative variations. *rand.Rand satisfies it.
type Picker interface {
	IntN(n int) int
}

// Colors are the accent colors paired with the decorative icon.
var Colors = []string{"#9146ff", "#00c8af", "#ff6905", "#eb0400", "#1f69ff", "#f0f0ff"}

var badgeMarkup = map[model.Badge]string{
	model.BadgeGold:   `<span class="iconify" data-icon="emojione:1st-place-medal" style="color: #ffd700;"></span>`,
	model.BadgeSilver: `<span class="iconify" data-icon="emojione:2nd-place-medal" style="color: #c0c0c0;"></span>`,
	model.BadgeBronze: `<span class="iconify" data-icon="emojione:3rd-place-medal" style="color: #cd7f32;"></span>`,
}

const cell = "<td class='py-3 px-6 text-left'>%s</td>"

// Renderer turns a leaderboard into table rows.
type Renderer struct {
	// Broadcaster is the login whose own entry is left off the board.
	Broadcaster string
	Icons       []string
	Rand        Picker
}

// New returns a renderer with a randomly seeded picker.
func New(broadcaster string, icons []string) *Renderer {
	return &Renderer{Broadcaster: broadcaster, Icons: icons, Rand: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// Rows renders every entry except the broadcaster's and returns the markup
// with the number of rows produced.
func (r *Renderer) Rows(ranked []model.RankedSubscriber) (string, int) {
	rows := make([]string, 0, len(ranked))
	skipped := false
	for _, e := range ranked {
		if !skipped && r.Broadcaster != "" && strings.EqualFold(e.UserName, r.Broadcaster) {
			skipped = true
			continue
		}
		row, err := r.row(e)
		if err != nil {
			metrics.RowFallbacks.Inc()
			logging.Warn("row_fallback", map[string]any{"user_id": e.UserID, "error": err.Error()})
			row = fallbackRow(e)
		}
		metrics.RowsRendered.Inc()
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n"), len(rows)
}

func (r *Renderer) row(e model.RankedSubscriber) (string, error) {
	if strings.TrimSpace(e.UserName) == "" {
		return "", fmt.Errorf("%w: user %q has no name", ErrRowRender, e.UserID)
	}
	badge, ok := badgeMarkup[e.Badge]
	if !ok {
		return "", fmt.Errorf("%w: unknown badge %d", ErrRowRender, e.Badge)
	}
	icon, color := r.decoration()
	name := fmt.Sprintf(`<span class="iconify" data-icon="%s" style="color: %s;"></span> %s`,
		html.EscapeString(icon), color, html.EscapeString(e.UserName))
	var b strings.Builder
	b.WriteString("<tr>")
	fmt.Fprintf(&b, cell, badge)
	fmt.Fprintf(&b, cell, name)
	fmt.Fprintf(&b, cell, html.EscapeString(e.Tier))
	fmt.Fprintf(&b, cell, strconv.Itoa(e.GiftCount))
	b.WriteString("</tr>")
	return b.String(), nil
}

func (r *Renderer) decoration() (string, string) {
	icons := r.Icons
	if len(icons) == 0 {
		icons = []string{DefaultIcon}
	}
	pick := r.Rand
	if pick == nil {
		return icons[0], Colors[0]
	}
	return icons[pick.IntN(len(icons))], Colors[pick.IntN(len(Colors))]
}

func fallbackRow(e model.RankedSubscriber) string {
	return "<tr class='degraded'>" +
		fmt.Sprintf(cell, "") +
		fmt.Sprintf(cell, "unknown subscriber") +
		fmt.Sprintf(cell, html.EscapeString(e.Tier)) +
		fmt.Sprintf(cell, strconv.Itoa(e.GiftCount)) +
		"</tr>"
}

// Page substitutes rows for the first placeholder in tmpl. A template
// without the placeholder comes back unchanged.
func Page(tmpl, rows, placeholder string) string {
	if placeholder == "" {
		return tmpl
	}
	return strings.Replace(tmpl, placeholder, rows, 1)
}

// WriteHTML writes page to path and returns its absolute path.
func WriteHTML(path, page string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(abs, []byte(page), 0o644); err != nil {
		return "", err
	}
	return abs, nil
}
