package models

import (
	"time"

	"github.com/lib/pq"
)

type Settings struct {
	ID                   int64          `db:"id" json:"id"`
	UserID               int64          `db:"user_id" json:"user_id"`
	AutoPublish          bool           `db:"auto_publish" json:"auto_publish"`
	PostingHours         pq.Int64Array  `db:"posting_hours" json:"posting_hours"`
	RestrictedCategories pq.StringArray `db:"restricted_categories" json:"restricted_categories"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// DefaultPostingHours is used when a user has never saved settings.
var DefaultPostingHours = pq.Int64Array{9, 12, 17}
