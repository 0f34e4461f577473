package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

// fakePostRepo keeps posts in memory and implements the predicates the
// real queries express in SQL.
type fakePostRepo struct {
	posts       map[int64]*models.Post
	order       []int64
	nextID      int64
	scheduleErr map[int64]error
	markErr     map[int64]error
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{
		posts:       make(map[int64]*models.Post),
		scheduleErr: make(map[int64]error),
		markErr:     make(map[int64]error),
	}
}

func (r *fakePostRepo) add(post *models.Post) *models.Post {
	if post.ID == 0 {
		r.nextID++
		post.ID = r.nextID
	} else if post.ID > r.nextID {
		r.nextID = post.ID
	}
	r.posts[post.ID] = post
	r.order = append(r.order, post.ID)
	return post
}

func (r *fakePostRepo) GetByID(_ context.Context, id int64) (*models.Post, error) {
	post, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	return post, nil
}

func (r *fakePostRepo) Create(_ context.Context, _ *sql.Tx, post *models.Post) (int64, error) {
	return r.add(post).ID, nil
}

func (r *fakePostRepo) GetByUserID(_ context.Context, userID int64) ([]*models.Post, error) {
	var posts []*models.Post
	for _, id := range r.order {
		if r.posts[id].UserID == userID {
			posts = append(posts, r.posts[id])
		}
	}
	return posts, nil
}

func (r *fakePostRepo) ListDrafts(_ context.Context, userID int64) ([]*models.Post, error) {
	var posts []*models.Post
	for _, id := range r.order {
		p := r.posts[id]
		if p.UserID == userID && p.Status == models.PostStatusDraft && p.ScheduledAt == nil {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (r *fakePostRepo) ListScheduled(_ context.Context, userID int64) ([]*models.Post, error) {
	var posts []*models.Post
	for _, id := range r.order {
		p := r.posts[id]
		if p.UserID == userID && p.Status == models.PostStatusScheduled && p.ScheduledAt != nil {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (r *fakePostRepo) ListDue(_ context.Context, now time.Time) ([]*models.Post, error) {
	var posts []*models.Post
	for _, p := range r.posts {
		if p.Status == models.PostStatusScheduled && p.ScheduledAt != nil && !p.ScheduledAt.After(now) {
			posts = append(posts, p)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].ScheduledAt.Equal(*posts[j].ScheduledAt) {
			return posts[i].ID < posts[j].ID
		}
		return posts[i].ScheduledAt.Before(*posts[j].ScheduledAt)
	})
	return posts, nil
}

func (r *fakePostRepo) Schedule(_ context.Context, postID int64, scheduledAt time.Time) error {
	if err := r.scheduleErr[postID]; err != nil {
		return err
	}
	post, ok := r.posts[postID]
	if !ok {
		return errors.New("post not found")
	}
	at := scheduledAt
	post.Status = models.PostStatusScheduled
	post.ScheduledAt = &at
	return nil
}

func (r *fakePostRepo) MarkPosted(_ context.Context, postID int64, externalPostID string, publishedAt time.Time) error {
	if err := r.markErr[postID]; err != nil {
		return err
	}
	post, ok := r.posts[postID]
	if !ok {
		return errors.New("post not found")
	}
	at := publishedAt
	post.Status = models.PostStatusPosted
	post.PublishedAt = &at
	post.ExternalPostID = externalPostID
	return nil
}

func (r *fakePostRepo) UpdateCaption(_ context.Context, postID int64, caption string) error {
	post, ok := r.posts[postID]
	if !ok {
		return errors.New("post not found")
	}
	post.Caption = caption
	return nil
}

func (r *fakePostRepo) CheckByUserID(_ context.Context, postID, userID int64) (bool, error) {
	post, ok := r.posts[postID]
	return ok && post.UserID == userID, nil
}

func (r *fakePostRepo) Remove(_ context.Context, id int64) error {
	delete(r.posts, id)
	return nil
}

type fakeSettingsRepo struct {
	settings map[int64]*models.Settings
}

func (r *fakeSettingsRepo) GetByUserID(_ context.Context, userID int64) (*models.Settings, bool, error) {
	s, ok := r.settings[userID]
	return s, ok, nil
}

func (r *fakeSettingsRepo) Upsert(_ context.Context, s *models.Settings, userID int64) error {
	if r.settings == nil {
		r.settings = make(map[int64]*models.Settings)
	}
	s.UserID = userID
	r.settings[userID] = s
	return nil
}

type fakeConnectionRepo struct {
	conns map[int64]*models.Connection
}

func (r *fakeConnectionRepo) GetByUserID(_ context.Context, userID int64) (*models.Connection, bool, error) {
	conn, ok := r.conns[userID]
	return conn, ok, nil
}

func (r *fakeConnectionRepo) Upsert(_ context.Context, conn *models.Connection) (int64, error) {
	if r.conns == nil {
		r.conns = make(map[int64]*models.Connection)
	}
	r.conns[conn.UserID] = conn
	return conn.UserID, nil
}

func (r *fakeConnectionRepo) ListExpiring(_ context.Context, _, _ time.Time) ([]*models.Connection, error) {
	return nil, nil
}

func (r *fakeConnectionRepo) SetToken(_ context.Context, userID int64, accessToken string, expiresAt time.Time) error {
	conn, ok := r.conns[userID]
	if !ok {
		return errors.New("connection not found")
	}
	conn.AccessToken = accessToken
	conn.TokenExpiresAt = expiresAt
	return nil
}

func (r *fakeConnectionRepo) Disconnect(_ context.Context, userID int64) error {
	if conn, ok := r.conns[userID]; ok {
		conn.IsConnected = false
	}
	return nil
}

// fakePublisher records calls and publishes with configurable outcomes.
type fakePublisher struct {
	err    error
	calls  []string
	nextID int
}

func (p *fakePublisher) Publish(_ context.Context, _ *models.Connection, mediaURL, _, _ string) (string, error) {
	p.calls = append(p.calls, mediaURL)
	if p.err != nil {
		return "", p.err
	}
	p.nextID++
	return fmt.Sprintf("ext-%d", p.nextID), nil
}
