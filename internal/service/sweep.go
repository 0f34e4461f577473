package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/transfer"
)

// Publisher delivers a finished post to the external platform and returns
// the platform's post id.
type Publisher interface {
	Publish(ctx context.Context, conn *models.Connection, mediaURL, caption, mediaType string) (string, error)
}

type SweepService interface {
	// Run processes every ready post once and reports aggregate counts.
	// It never returns an error: per-post failures are collected, store
	// failures are logged.
	Run(ctx context.Context) *transfer.SweepResult
}

type sweepService struct {
	pr  repository.PostRepository
	sr  repository.SettingsRepository
	cr  repository.ConnectionRepository
	pub Publisher
	now func() time.Time
}

func NewSweepService(
	pr repository.PostRepository,
	sr repository.SettingsRepository,
	cr repository.ConnectionRepository,
	pub Publisher) SweepService {
	return &sweepService{
		pr:  pr,
		sr:  sr,
		cr:  cr,
		pub: pub,
		now: time.Now,
	}
}

// publishGate is the per-user go/no-go decision, resolved once per sweep.
type publishGate struct {
	conn    *models.Connection
	enabled bool
}

func (s *sweepService) Run(ctx context.Context) *transfer.SweepResult {
	result := &transfer.SweepResult{Errors: []string{}}

	posts, err := s.pr.ListDue(ctx, s.now())
	if err != nil {
		slog.Error("sweep: listing due posts", "error", err)
		return result
	}

	if len(posts) == 0 {
		return result
	}

	// Posts are handled strictly one at a time, in selection order.
	gates := make(map[int64]publishGate)
	for _, post := range posts {
		gate, ok := gates[post.UserID]
		if !ok {
			gate = s.resolveGate(ctx, post.UserID)
			gates[post.UserID] = gate
		}
		// Auto-publish disabled or no verified connection: not an error,
		// the post simply waits.
		if !gate.enabled {
			continue
		}

		if post.MediaURL == "" || post.Caption == "" {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("post %d: missing media or caption", post.ID))
			continue
		}

		externalID, err := s.pub.Publish(ctx, gate.conn, post.MediaURL, post.Caption, post.MediaType)
		if err != nil {
			// Leave the post scheduled; it is eligible again next tick.
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("post %d: %v", post.ID, err))
			slog.Info("sweep: publish failed", "post_id", post.ID, "error", err)
			continue
		}

		if err := s.pr.MarkPosted(ctx, post.ID, externalID, s.now()); err != nil {
			slog.Error("sweep: failed to record publish", "post_id", post.ID, "error", err)
		}
		result.Published++
	}

	return result
}

func (s *sweepService) resolveGate(ctx context.Context, userID int64) publishGate {
	settings, ok, err := s.sr.GetByUserID(ctx, userID)
	if err != nil || !ok || !settings.AutoPublish {
		return publishGate{}
	}

	conn, ok, err := s.cr.GetByUserID(ctx, userID)
	if err != nil || !ok || !conn.IsConnected {
		return publishGate{}
	}

	return publishGate{conn: conn, enabled: true}
}
