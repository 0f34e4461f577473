package models

import "time"

type Post struct {
	ID             int64      `db:"id" json:"id"`
	UserID         int64      `db:"user_id" json:"user_id"`
	Category       string     `db:"category" json:"category"`
	Caption        string     `db:"caption" json:"caption"`
	MediaURL       string     `db:"media_url" json:"media_url"`
	MediaType      string     `db:"media_type" json:"media_type"` // image, video
	Status         string     `db:"status" json:"status"`         // draft, scheduled, posted, processing
	ScheduledAt    *time.Time `db:"scheduled_at" json:"scheduled_at"`
	PublishedAt    *time.Time `db:"published_at" json:"published_at"`
	ExternalPostID string     `db:"external_post_id" json:"external_post_id"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft      = "draft"
	PostStatusScheduled  = "scheduled"
	PostStatusPosted     = "posted"
	PostStatusProcessing = "processing"
)

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)
