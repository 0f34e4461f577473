package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/service"
)

// TokenRefreshJob renews Instagram access tokens shortly before they
// expire so the publish sweep never runs with a stale token.
type TokenRefreshJob struct {
	cr repository.ConnectionRepository
	ig service.InstagramService
}

func NewTokenRefreshJob(cr repository.ConnectionRepository, ig service.InstagramService) *TokenRefreshJob {
	return &TokenRefreshJob{
		cr: cr,
		ig: ig,
	}
}

func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	conns, err := j.cr.ListExpiring(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, conn := range conns {
		if err := j.ig.RefreshInstagramToken(ctx, conn); err != nil {
			slog.Info("unable to refresh Instagram token", "user_id", conn.UserID, "error", err)
		}
	}
}
