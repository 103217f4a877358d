package history

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/spec-kit/history-diff-service/internal/domain"
)

// RenderedCell is one content cell of an update table. The ID addresses the
// cell in later cutout operations.
type RenderedCell struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	HTML  string `json:"html"`
}

// RenderedUpdate is one update block: a header line plus a two-column table
// of labels and diff fragments.
type RenderedUpdate struct {
	HeaderHTML string         `json:"headerHtml"`
	Cells      []RenderedCell `json:"cells"`
}

// Renderer builds the display blocks for reconciled updates.
type Renderer struct {
	collator *collate.Collator
}

// NewRenderer creates a renderer sorting rows for the given locale. An
// unparsable locale falls back to the undetermined language.
func NewRenderer(locale string) *Renderer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Renderer{collator: collate.New(tag)}
}

// Render produces one block per update that still has rows. Rows are
// sorted alphabetically by label so the same field always appears in the
// same place across blocks.
func (r *Renderer) Render(updates []*domain.Update) []RenderedUpdate {
	var out []RenderedUpdate
	for i, u := range updates {
		if len(u.Rows) == 0 {
			continue
		}
		rows := append([]domain.UpdateRow(nil), u.Rows...)
		sort.SliceStable(rows, func(a, b int) bool {
			return r.collator.CompareString(rows[a].Label, rows[b].Label) < 0
		})

		block := RenderedUpdate{HeaderHTML: headerHTML(u)}
		for j, row := range rows {
			block.Cells = append(block.Cells, RenderedCell{
				ID:    fmt.Sprintf("cell-%d-%d", i, j),
				Label: row.Label,
				HTML:  row.HTML,
			})
		}
		out = append(out, block)
	}
	return out
}

// RowLabels returns the distinct row labels across all updates, sorted.
// The settings dialog offers them as filter suggestions.
func (r *Renderer) RowLabels(updates []*domain.Update) []string {
	seen := map[string]struct{}{}
	var labels []string
	for _, u := range updates {
		for _, row := range u.Rows {
			if _, ok := seen[row.Label]; !ok {
				seen[row.Label] = struct{}{}
				labels = append(labels, row.Label)
			}
		}
	}
	sort.Slice(labels, func(a, b int) bool {
		return r.collator.CompareString(labels[a], labels[b]) < 0
	})
	return labels
}

// headerHTML renders "avatar Author changed on date (update N):". The
// update-id suffix is omitted for pure comment updates, which have no
// revision number.
func headerHTML(u *domain.Update) string {
	dateStr := "an unknown date"
	if !u.Timestamp.IsZero() {
		dateStr = FormatDate(u.Timestamp)
	}
	idStr := ""
	if u.SourceID != "" && !u.IsComment() {
		idStr = fmt.Sprintf(" (update %s)", u.SourceID)
	}
	var b strings.Builder
	if avatar := IdentityAvatarHTML(u.Author); avatar != "" {
		b.WriteString(avatar)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "<div><b>%s</b> changed on <i>%s</i>%s:</div>", IdentityName(u.Author), dateStr, idStr)
	return b.String()
}
