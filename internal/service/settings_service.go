package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/history-diff-service/internal/domain"
	"github.com/spec-kit/history-diff-service/internal/repository"
)

// SettingsService loads and stores per-user panel settings. A missing or
// unreadable blob never fails a request; the defaults take over and the
// next save writes a clean current-version blob.
type SettingsService struct {
	configs repository.ConfigRepository
	logger  *zap.Logger
}

// NewSettingsService builds the service.
func NewSettingsService(configs repository.ConfigRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{configs: configs, logger: logger}
}

// Load returns the user's settings, upgraded to the current version.
func (s *SettingsService) Load(ctx context.Context, userID string) (domain.UserConfig, error) {
	blob, err := s.configs.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DefaultUserConfig(), nil
		}
		return domain.UserConfig{}, err
	}

	var cfg domain.UserConfig
	if err := json.Unmarshal(blob, &cfg); err != nil {
		s.logger.Warn("stored settings unreadable, using defaults",
			zap.String("user_id", userID), zap.Error(err))
		return domain.DefaultUserConfig(), nil
	}
	return domain.UpgradeUserConfig(cfg), nil
}

// Save sanitizes and persists the settings at the current version.
func (s *SettingsService) Save(ctx context.Context, userID string, cfg domain.UserConfig) (domain.UserConfig, error) {
	cfg.ConfigVersion = domain.CurrentConfigVersion
	cfg = domain.Sanitize(cfg)

	blob, err := json.Marshal(cfg)
	if err != nil {
		return domain.UserConfig{}, err
	}
	if err := s.configs.Put(ctx, userID, blob); err != nil {
		return domain.UserConfig{}, err
	}
	return cfg, nil
}
