package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/pkg/utils"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarService drops a reminder event on the user's Google Calendar for
// each slot the planner assigns. Reminders are best effort: the planner
// logs and moves on when one fails.
type CalendarService interface {
	CreateReminder(ctx context.Context, userID int64, post *models.Post, at time.Time) error
}

type calendarService struct {
	cfg config.Config
	ur  repository.UserRepository
}

func NewCalendarService(cfg config.Config, ur repository.UserRepository) CalendarService {
	return &calendarService{
		cfg: cfg,
		ur:  ur,
	}
}

func (s *calendarService) CreateReminder(ctx context.Context, userID int64, post *models.Post, at time.Time) error {
	user, err := s.ur.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.GoogleToken == "" {
		return errors.New("no Google token on file")
	}

	accessToken, err := utils.Decrypt(user.GoogleToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("error creating Calendar service: %w", err)
	}

	calendarID := user.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	summary := fmt.Sprintf("Post going live: %s", post.Category)
	if post.Caption != "" {
		summary = fmt.Sprintf("Post going live: %.60s", post.Caption)
	}

	event := &calendar.Event{
		Summary:     summary,
		Description: fmt.Sprintf("Scheduled Instagram post #%d", post.ID),
		Start: &calendar.EventDateTime{
			DateTime: at.Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: at.Add(15 * time.Minute).Format(time.RFC3339),
		},
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
			Overrides: []*calendar.EventReminder{
				{Method: "popup", Minutes: 30},
			},
		},
	}

	_, err = srv.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("error inserting calendar event: %w", err)
	}

	return nil
}
