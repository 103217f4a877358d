// Package cutout computes and materializes the context windows that hide
// unchanged content around insertion and deletion markers.
package cutout

import "fmt"

// Extent is a vertical span in pixels, in the coordinate space of the
// rendered content block.
type Extent struct {
	Top    float64
	Bottom float64
}

// Window is one visible slice of the content. Top and Bottom are relative
// to the top of the uncut content; 0 means the very top and TotalHeight
// the very bottom.
type Window struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

func (w Window) Height() float64 { return w.Bottom - w.Top }

// Windows is the computed window set of one content cell.
type Windows struct {
	Windows     []Window `json:"windows"`
	TotalHeight float64  `json:"totalHeight"`
}

// Clone returns a deep copy, used to snapshot the computed state before
// per-border expansions mutate it.
func (w Windows) Clone() Windows {
	return Windows{
		Windows:     append([]Window(nil), w.Windows...),
		TotalHeight: w.TotalHeight,
	}
}

// IsFullHeight reports whether a single window spans the whole content. In
// that case the full content is shown directly: border chrome around a
// window that hides nothing would wrongly suggest hidden content exists.
func (w Windows) IsFullHeight() bool {
	return len(w.Windows) == 1 && w.Windows[0].Top <= 0 && w.Windows[0].Bottom >= w.TotalHeight
}

// MergeTolerance returns the snap/merge distance in pixels. When the user
// asked for zero context lines the tolerance is zero: no context is shown
// just because half a line would separate two windows. Otherwise the
// border chrome's own height is the floor; hiding less content than the
// border occupies would make expanding it shrink the page.
func MergeTolerance(contextLines int) float64 {
	if contextLines > 0 {
		return 20
	}
	return 0
}

// ComputeWindows derives the visible windows for one content block from
// the extents of its change markers, in document order. Each marker is
// padded by contextLines of context, clamped to the block, snapped to the
// block edges within mergeTolerance, and merged into the previous window
// when they overlap or nearly touch.
func ComputeWindows(total Extent, markers []Extent, contextLines int, lineHeight, mergeTolerance float64) Windows {
	if total.Bottom <= total.Top {
		return Windows{}
	}
	totalHeight := total.Bottom - total.Top

	// +1 so nothing gets cut off at the boundary; it also merges contexts
	// that end and start on successive lines.
	contextPx := float64(contextLines)*lineHeight + 1

	result := Windows{TotalHeight: totalHeight}
	for _, marker := range markers {
		markerTop := marker.Top
		// An empty marker (e.g. a deleted blank line) still gets one line
		// of meaningful context.
		markerBottom := marker.Bottom
		if markerBottom < markerTop+lineHeight {
			markerBottom = markerTop + lineHeight
		}

		top := markerTop - contextPx - total.Top
		if top < 0 {
			top = 0
		}
		bottom := markerBottom + contextPx
		if bottom > total.Bottom {
			bottom = total.Bottom
		}
		bottom -= total.Top
		if bottom < top {
			bottom = top
		}

		if top <= mergeTolerance {
			top = 0
		}
		if totalHeight-bottom <= mergeTolerance {
			bottom = totalHeight
		}

		if n := len(result.Windows); n > 0 && result.Windows[n-1].Bottom+mergeTolerance >= top {
			prev := &result.Windows[n-1]
			if top < prev.Top {
				prev.Top = top
			}
			if bottom > prev.Bottom {
				prev.Bottom = bottom
			}
		} else {
			result.Windows = append(result.Windows, Window{Top: top, Bottom: bottom})
		}
	}
	return result
}

// ExpandBorder removes the border with the given index from the window
// set. Border i sits above window i; the border below the last window has
// index len(Windows). An extremity border extends the adjacent window to
// the edge; an interior border merges its two neighbors into one.
func (w *Windows) ExpandBorder(borderIdx int) error {
	n := len(w.Windows)
	if borderIdx < 0 || borderIdx > n || n == 0 {
		return fmt.Errorf("border index %d out of range for %d windows", borderIdx, n)
	}
	switch borderIdx {
	case 0:
		w.Windows[0].Top = 0
	case n:
		w.Windows[n-1].Bottom = w.TotalHeight
	default:
		w.Windows[borderIdx-1].Bottom = w.Windows[borderIdx].Bottom
		w.Windows = append(w.Windows[:borderIdx], w.Windows[borderIdx+1:]...)
	}
	return nil
}
