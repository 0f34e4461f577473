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

// PlanConfig carries the per-user scheduling rules.
type PlanConfig struct {
	// PostingHours are the fixed hour-of-day slots per calendar day, in the
	// order they should be filled.
	PostingHours []int
	// RestrictedCategories must never land on a Saturday or Sunday.
	RestrictedCategories map[string]struct{}
}

// Assignment pairs a draft with the slot the planner picked for it.
type Assignment struct {
	Post *models.Post
	At   time.Time
}

type PlannerService interface {
	AutoSchedule(ctx context.Context, userID int64) (*transfer.ScheduleResult, error)
}

type plannerService struct {
	pr  repository.PostRepository
	sr  repository.SettingsRepository
	cal CalendarService
	now func() time.Time
}

func NewPlannerService(pr repository.PostRepository, sr repository.SettingsRepository, cal CalendarService) PlannerService {
	return &plannerService{
		pr:  pr,
		sr:  sr,
		cal: cal,
		now: time.Now,
	}
}

// slotCursor walks (calendar day, posting-hour index) pairs.
type slotCursor struct {
	day     time.Time // midnight, local
	hourIdx int
}

func (c slotCursor) at(hours []int) time.Time {
	return time.Date(c.day.Year(), c.day.Month(), c.day.Day(), hours[c.hourIdx], 0, 0, 0, c.day.Location())
}

func (c slotCursor) key(hours []int) string {
	return fmt.Sprintf("%s|%02d", c.day.Format("2006-01-02"), hours[c.hourIdx])
}

func (c slotCursor) next(hours []int) slotCursor {
	if c.hourIdx+1 < len(hours) {
		return slotCursor{day: c.day, hourIdx: c.hourIdx + 1}
	}
	return slotCursor{day: c.day.AddDate(0, 0, 1), hourIdx: 0}
}

func isWeekend(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func slotKey(t time.Time) string {
	return fmt.Sprintf("%s|%02d", t.Format("2006-01-02"), t.Hour())
}

// PlanSlots maps drafts onto future (day, hour) slots starting tomorrow,
// respecting weekend exclusions and already-occupied slots. It is pure:
// the result is fully determined by its inputs.
//
// The shared cursor advances one slot per plain assignment and never
// rewinds. A restricted draft that has to jump past a weekend does so on a
// scratch cursor, so the weekend slots it skipped stay available to later
// unrestricted drafts.
func PlanSlots(drafts, scheduled []*models.Post, cfg PlanConfig, now time.Time) []Assignment {
	if len(drafts) == 0 || len(cfg.PostingHours) == 0 {
		return nil
	}

	occupied := make(map[string]bool, len(scheduled))
	for _, post := range scheduled {
		if post.ScheduledAt != nil {
			occupied[slotKey(post.ScheduledAt.In(now.Location()))] = true
		}
	}

	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	cursor := slotCursor{day: tomorrow}

	assignments := make([]Assignment, 0, len(drafts))
	for _, draft := range drafts {
		_, restricted := cfg.RestrictedCategories[draft.Category]

		c := cursor
		jumped := false
		for {
			// Weekend exclusion runs before the occupancy lookup, so a
			// restricted draft never takes a free weekend slot.
			if restricted && isWeekend(c.day) {
				c = slotCursor{day: c.day.AddDate(0, 0, 1)}
				jumped = true
				continue
			}
			if occupied[c.key(cfg.PostingHours)] {
				c = c.next(cfg.PostingHours)
				continue
			}
			break
		}

		assignments = append(assignments, Assignment{Post: draft, At: c.at(cfg.PostingHours)})
		occupied[c.key(cfg.PostingHours)] = true

		if !jumped {
			cursor = c.next(cfg.PostingHours)
		}
	}

	return assignments
}

// AutoSchedule assigns every unscheduled draft of the user to a slot and
// persists the assignments one by one. A failing update is logged and the
// rest of the batch continues; its slot stays consumed for this run and the
// draft is picked up again next time.
func (s *plannerService) AutoSchedule(ctx context.Context, userID int64) (*transfer.ScheduleResult, error) {
	drafts, err := s.pr.ListDrafts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}

	if len(drafts) == 0 {
		return &transfer.ScheduleResult{Message: "no drafts to schedule", Scheduled: 0}, nil
	}

	scheduled, err := s.pr.ListScheduled(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing scheduled posts: %w", err)
	}

	cfg := s.planConfig(ctx, userID)
	assignments := PlanSlots(drafts, scheduled, cfg, s.now())

	count := 0
	for _, a := range assignments {
		if err := s.pr.Schedule(ctx, a.Post.ID, a.At); err != nil {
			slog.Error("failed to schedule draft", "post_id", a.Post.ID, "error", err)
			continue
		}
		count++

		if s.cal != nil {
			if err := s.cal.CreateReminder(ctx, userID, a.Post, a.At); err != nil {
				slog.Info("calendar reminder skipped", "post_id", a.Post.ID, "error", err)
			}
		}
	}

	return &transfer.ScheduleResult{
		Message:   fmt.Sprintf("scheduled %d of %d drafts", count, len(drafts)),
		Scheduled: count,
	}, nil
}

func (s *plannerService) planConfig(ctx context.Context, userID int64) PlanConfig {
	hours := models.DefaultPostingHours
	restricted := map[string]struct{}{}

	settings, ok, err := s.sr.GetByUserID(ctx, userID)
	if err != nil {
		slog.Info(err.Error())
	}
	if ok && err == nil {
		if len(settings.PostingHours) > 0 {
			hours = settings.PostingHours
		}
		for _, c := range settings.RestrictedCategories {
			restricted[c] = struct{}{}
		}
	}

	postingHours := make([]int, len(hours))
	for i, h := range hours {
		postingHours[i] = int(h)
	}

	return PlanConfig{PostingHours: postingHours, RestrictedCategories: restricted}
}
