package dto

import "github.com/spec-kit/history-diff-service/internal/service"

// HistoryResponse is the body of a full history load.
type HistoryResponse struct {
	SessionID  string                `json:"session_id"`
	Generation int64                 `json:"generation"`
	Blocks     []service.UpdateBlock `json:"blocks"`
	RowLabels  []string              `json:"row_labels"`
}

// RecomputeRequest carries the new panel geometry after a resize.
type RecomputeRequest struct {
	ViewportWidthPx float64 `json:"viewport_width_px"`
	LineHeightPx    float64 `json:"line_height_px"`
	ScrollOffset    float64 `json:"scroll_offset"`
}

// RecomputeResponse returns the recut blocks, or superseded=true when a
// newer resize arrived during the debounce window.
type RecomputeResponse struct {
	Superseded   bool                  `json:"superseded"`
	Blocks       []service.UpdateBlock `json:"blocks,omitempty"`
	ScrollOffset float64               `json:"scroll_offset"`
}

// ExpandRequest names the border to expand within a cell.
type ExpandRequest struct {
	BorderIndex int `json:"border_index"`
}

// BlocksResponse wraps a full re-materialization (show-all, restore).
type BlocksResponse struct {
	Blocks []service.UpdateBlock `json:"blocks"`
}
