package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/transfer"
)

type SettingsService interface {
	GetSettingsInfo(ctx context.Context, userID int64) (*models.Settings, error)
	UpdateSettings(ctx context.Context, userID int64, update *transfer.SettingsUpdate) error
}

type settingsService struct {
	sr repository.SettingsRepository
}

func NewSettingsService(sr repository.SettingsRepository) SettingsService {
	return &settingsService{
		sr: sr,
	}
}

func (s *settingsService) GetSettingsInfo(ctx context.Context, userID int64) (*models.Settings, error) {
	settings, isExist, err := s.sr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !isExist {
		// First read for a new user: hand back defaults instead of 404ing.
		return &models.Settings{
			UserID:               userID,
			AutoPublish:          false,
			PostingHours:         models.DefaultPostingHours,
			RestrictedCategories: pq.StringArray{},
		}, nil
	}

	return settings, nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, userID int64, update *transfer.SettingsUpdate) error {
	if update == nil {
		err := errors.New("settings update is nil")
		slog.Info(err.Error())
		return err
	}

	hours := update.PostingHours
	if len(hours) == 0 {
		hours = models.DefaultPostingHours
	}
	for _, h := range hours {
		if h < 0 || h > 23 {
			return fmt.Errorf("posting hour %d is out of range", h)
		}
	}

	settings := models.Settings{
		AutoPublish:          update.AutoPublish,
		PostingHours:         pq.Int64Array(hours),
		RestrictedCategories: pq.StringArray(update.RestrictedCategories),
	}
	return s.sr.Upsert(ctx, &settings, userID)
}
