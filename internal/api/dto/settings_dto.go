package dto

import "github.com/spec-kit/history-diff-service/internal/domain"

// SettingsResponse wraps the user's panel settings.
type SettingsResponse struct {
	Settings domain.UserConfig `json:"settings"`
}

// SettingsUpdateRequest replaces the user's panel settings. The stored
// blob is always written at the current schema version.
type SettingsUpdateRequest struct {
	FieldFilters         []string `json:"fieldFilters"`
	FieldFiltersDisabled bool     `json:"fieldFiltersDisabled"`
	ShowUnchangedLines   bool     `json:"showUnchangedLines"`
	NumContextLines      int      `json:"numContextLines"`
	LimitMaxTileWidth    bool     `json:"limitMaxTileWidth"`
	MaxTileWidth         int      `json:"maxTileWidth"`
}
