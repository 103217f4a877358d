package cutout

import (
	"fmt"
	"math"
	"strings"
)

// PlaceholderText is shown when a cell has markers in its diff but none of
// them produced a measurable extent.
const PlaceholderText = "(Only whitespace or formatting changes not detected by diff algorithm.)"

// Cell display modes.
const (
	ModeFull        = "full"
	ModeWindowed    = "windowed"
	ModePlaceholder = "placeholder"
)

// Segment is one vertical piece of a windowed cell: either a visible
// window or a collapse border.
type Segment struct {
	Kind   string  `json:"kind"` // "window" or "border"
	HTML   string  `json:"html,omitempty"`
	Window *Window `json:"window,omitempty"`
	Border *Border `json:"border,omitempty"`
}

// Border separates or caps windows. Index addresses the border in expand
// operations: border i sits above window i, the closing border has index
// len(windows). Position is the CSS class the panel styles it with.
type Border struct {
	Index       int    `json:"index"`
	Position    string `json:"position"`
	HiddenLines int    `json:"hiddenLines"`
}

// CellView is the display form of one content cell.
type CellView struct {
	Mode     string    `json:"mode"`
	FullHTML string    `json:"fullHtml,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
}

// CellState is the mutable cutout state of one cell inside a render
// session. Expanding a border mutates Current; the first mutation
// snapshots the computed windows so the global restore can revert manual
// expansions.
type CellState struct {
	FullHTML string
	Current  Windows
	orig     *Windows
}

func NewCellState(fullHTML string, w Windows) *CellState {
	return &CellState{FullHTML: fullHTML, Current: w}
}

// ExpandBorder widens the windows around one border, keeping a snapshot
// for Restore.
func (c *CellState) ExpandBorder(borderIdx int) error {
	if c.orig == nil {
		snap := c.Current.Clone()
		c.orig = &snap
	}
	return c.Current.ExpandBorder(borderIdx)
}

// Restore reverts all manual border expansions.
func (c *CellState) Restore() {
	if c.orig != nil {
		c.Current = c.orig.Clone()
		c.orig = nil
	}
}

// View materializes the current state. Zero windows means the diff found
// markers but no measurable change: the caller shows a placeholder with an
// escape hatch to the full content. A single full-height window shows the
// full content directly, without border chrome.
func (c *CellState) View(lineHeight float64) CellView {
	w := c.Current
	if len(w.Windows) == 0 {
		return CellView{Mode: ModePlaceholder, FullHTML: c.FullHTML}
	}
	if w.IsFullHeight() {
		return CellView{Mode: ModeFull, FullHTML: c.FullHTML}
	}

	view := CellView{Mode: ModeWindowed}
	first := w.Windows[0]
	last := w.Windows[len(w.Windows)-1]

	if first.Top > 0 {
		view.Segments = append(view.Segments, borderSegment(0, "cutout-border-at-top", first.Top, lineHeight))
	}
	for i := 0; i < len(w.Windows)-1; i++ {
		view.Segments = append(view.Segments, windowSegment(c.FullHTML, w.Windows[i]))
		gap := w.Windows[i+1].Top - w.Windows[i].Bottom
		view.Segments = append(view.Segments, borderSegment(i+1, "cutout-border-in-middle", gap, lineHeight))
	}
	view.Segments = append(view.Segments, windowSegment(c.FullHTML, last))
	if last.Bottom < w.TotalHeight {
		view.Segments = append(view.Segments,
			borderSegment(len(w.Windows), "cutout-border-at-bottom", w.TotalHeight-last.Bottom, lineHeight))
	}
	return view
}

// windowSegment clips the full content to one window: a fixed-height
// container hides the overflow while a negative offset scrolls the clone
// to the window's top. Cutting a fragment out of arbitrary HTML (tables,
// lists, images) is not generally possible, so each window carries a full
// clone and shows only its slice.
func windowSegment(fullHTML string, win Window) Segment {
	w := win
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="cutout-window" style="display: block; overflow: hidden; height: %spx;">`, formatPx(win.Height()))
	fmt.Fprintf(&b, `<div style="margin-top: -%spx;">`, formatPx(win.Top))
	b.WriteString(fullHTML)
	b.WriteString("</div></div>")
	return Segment{Kind: "window", HTML: b.String(), Window: &w}
}

func borderSegment(index int, position string, gapPx, lineHeight float64) Segment {
	hidden := 1
	if lineHeight > 0 {
		hidden = int(math.Ceil(gapPx / lineHeight))
		if hidden < 1 {
			hidden = 1
		}
	}
	return Segment{Kind: "border", Border: &Border{Index: index, Position: position, HiddenLines: hidden}}
}

func formatPx(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
