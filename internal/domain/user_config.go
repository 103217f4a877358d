package domain

import "strings"

// CurrentConfigVersion is the schema version written by this build.
const CurrentConfigVersion = 3

// MinTileWidth is the smallest accepted display width cap.
const MinTileWidth = 300

// UserConfig holds the persisted per-user panel preferences. The blob is
// versioned; older versions are upgraded additively on load, never
// destructively.
type UserConfig struct {
	ConfigVersion        int      `json:"configVersion"`
	FieldFilters         []string `json:"fieldFilters"`
	FieldFiltersDisabled bool     `json:"fieldFiltersDisabled"`
	ShowUnchangedLines   bool     `json:"showUnchangedLines"`
	NumContextLines      int      `json:"numContextLines"`
	LimitMaxTileWidth    bool     `json:"limitMaxTileWidth"`
	MaxTileWidth         int      `json:"maxTileWidth"`
}

// noisyFieldFilters hides fields that change on almost every revision and
// carry no information for a human reader.
var noisyFieldFilters = []string{"Rev", "Stack Rank"}

// DefaultUserConfig is the fallback when no blob exists or the stored blob
// cannot be read.
func DefaultUserConfig() UserConfig {
	return UserConfig{
		ConfigVersion:   CurrentConfigVersion,
		FieldFilters:    append([]string(nil), noisyFieldFilters...),
		NumContextLines: 3,
		MaxTileWidth:    1000,
	}
}

// UpgradeUserConfig brings a stored config up to CurrentConfigVersion.
// Every version bump only adds fields or default entries; user-set values
// are kept as-is.
func UpgradeUserConfig(cfg UserConfig) UserConfig {
	if cfg.ConfigVersion < 2 {
		// v2 introduced the default noisy-field filters and context lines.
		for _, f := range noisyFieldFilters {
			if !containsFold(cfg.FieldFilters, f) {
				cfg.FieldFilters = append(cfg.FieldFilters, f)
			}
		}
		cfg.NumContextLines = DefaultUserConfig().NumContextLines
		cfg.ConfigVersion = 2
	}
	if cfg.ConfigVersion < 3 {
		// v3 introduced the optional tile width cap.
		cfg.LimitMaxTileWidth = false
		cfg.MaxTileWidth = DefaultUserConfig().MaxTileWidth
		cfg.ConfigVersion = 3
	}
	return Sanitize(cfg)
}

// Sanitize clamps values into their valid ranges.
func Sanitize(cfg UserConfig) UserConfig {
	if cfg.NumContextLines < 0 {
		cfg.NumContextLines = 0
	}
	if cfg.MaxTileWidth < MinTileWidth {
		cfg.MaxTileWidth = MinTileWidth
	}
	return cfg
}

func containsFold(list []string, want string) bool {
	for _, have := range list {
		if strings.EqualFold(have, want) {
			return true
		}
	}
	return false
}
