package models

import "time"

type User struct {
	ID             int64     `db:"id" json:"id"`
	GoogleID       string    `db:"google_id" json:"google_id"`
	Email          string    `db:"email" json:"email"`
	Name           string    `db:"name" json:"name"`
	ProfilePicture string    `db:"profile_picture" json:"profile_picture"`
	GoogleToken    string    `db:"google_token" json:"-"`
	CalendarID     string    `db:"calendar_id" json:"calendar_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
