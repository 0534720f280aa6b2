package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftboard/internal/model"
	"giftboard/internal/ranking"
)

// zeroPicker always picks the first option.
type zeroPicker struct{}

func (zeroPicker) IntN(int) int { return 0 }

func subs(names ...string) []model.Subscriber {
	out := make([]model.Subscriber, len(names))
	for i, n := range names {
		out[i] = model.Subscriber{UserID: n, UserName: n, UserLogin: strings.ToLower(n), Tier: "1000"}
	}
	return out
}

func rowCount(markup string) int { return strings.Count(markup, "<tr") }

func TestRowsExcludesBroadcaster(t *testing.T) {
	r := &Renderer{Broadcaster: "caster", Icons: []string{"mdi:heart"}, Rand: zeroPicker{}}

	with := ranking.Rank(subs("Alpha", "Caster", "Beta"))
	markup, n := r.Rows(with)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, rowCount(markup))
	assert.NotContains(t, markup, "Caster")

	without := ranking.Rank(subs("Alpha", "Beta"))
	markup, n = r.Rows(without)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, rowCount(markup))
}

func TestBroadcasterStillCountsAsGifter(t *testing.T) {
	in := subs("Caster", "Beta", "Gamma")
	in[1].Gifter = model.SomeGifter("Caster")
	in[2].Gifter = model.SomeGifter("Beta")
	ranked := ranking.Rank(in)
	require.Equal(t, "Caster", ranked[0].UserName)
	require.Equal(t, 1, ranked[0].GiftCount)

	r := &Renderer{Broadcaster: "caster", Rand: zeroPicker{}}
	markup, n := r.Rows(ranked)
	assert.Equal(t, 2, n)
	first := strings.Split(markup, "\n")[0]
	assert.Contains(t, first, "Beta")
	assert.Contains(t, first, "2nd-place-medal")
}

func TestRowGolden(t *testing.T) {
	r := &Renderer{Icons: []string{"mdi:heart", "mdi:star"}, Rand: zeroPicker{}}
	markup, n := r.Rows([]model.RankedSubscriber{{
		Subscriber: model.Subscriber{UserID: "1", UserName: "A<b>", Tier: "1000"},
		GiftCount:  2,
		Badge:      model.BadgeGold,
	}})
	require.Equal(t, 1, n)
	want := "<tr>" +
		`<td class='py-3 px-6 text-left'><span class="iconify" data-icon="emojione:1st-place-medal" style="color: #ffd700;"></span></td>` +
		`<td class='py-3 px-6 text-left'><span class="iconify" data-icon="mdi:heart" style="color: #9146ff;"></span> A&lt;b&gt;</td>` +
		`<td class='py-3 px-6 text-left'>1000</td>` +
		`<td class='py-3 px-6 text-left'>2</td>` +
		"</tr>"
	assert.Equal(t, want, markup)
}

func TestMalformedRecordDegradesOnlyItsRow(t *testing.T) {
	r := &Renderer{Rand: zeroPicker{}}
	ranked := ranking.Rank([]model.Subscriber{{UserID: "x"}, {UserID: "2", UserName: "Beta"}})
	markup, n := r.Rows(ranked)
	assert.Equal(t, 2, n)
	lines := strings.Split(markup, "\n")
	assert.Contains(t, lines[0], "degraded")
	assert.Contains(t, lines[0], "unknown subscriber")
	assert.Contains(t, lines[1], "Beta")
}

func TestEmptyListRendersValidPage(t *testing.T) {
	r := New("caster", []string{DefaultIcon})
	markup, n := r.Rows(ranking.Rank(nil))
	assert.Equal(t, 0, n)
	assert.Equal(t, "", markup)

	page := Page("<table><!-- PLACEHOLDER --></table>", markup, "<!-- PLACEHOLDER -->")
	assert.Equal(t, "<table></table>", page)
}

func TestPageWithoutPlaceholderIsUnchanged(t *testing.T) {
	tmpl := "<html><body>static</body></html>"
	assert.Equal(t, tmpl, Page(tmpl, "<tr></tr>", "<!-- PLACEHOLDER -->"))
}

func TestPageReplacesSinglePlaceholder(t *testing.T) {
	got := Page("a<!-- P -->b<!-- P -->", "X", "<!-- P -->")
	assert.Equal(t, "aXb<!-- P -->", got)
}

func TestWriteHTMLReturnsAbsolutePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "index.html")
	abs, err := WriteHTML(path, "<html></html>")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))
	b, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(b))
}
