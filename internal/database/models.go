package database

import (
	"database/sql"
	"time"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type User struct {
	Id             int       `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	EmailAddress   string    `db:"email" json:"email_address,omitempty"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	ProfilePicture string    `db:"profile_picture" json:"profile_picture,omitempty"`
	Status         string    `db:"status" json:"status"`
	LastSeen       time.Time `db:"last_seen" json:"last_seen"`
	CreatedAt      time.Time `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

type Message struct {
	Id          int            `db:"id" json:"id"`
	SenderId    int            `db:"sender_id" json:"sender_id"`
	RecipientId int            `db:"recipient_id" json:"recipient_id"`
	Body        sql.NullString `db:"body" json:"-"`
	AudioFile   sql.NullString `db:"audio_file" json:"-"`
	CreatedAt   time.Time      `db:"created_at" json:"timestamp"`
	IsRead      bool           `db:"is_read" json:"is_read"`
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	EmailAddress string
}

type CreateMessageParams struct {
	SenderId    int
	RecipientId int
	// Exactly one of Body/AudioFile is supplied by a correct caller.
	// The store does not reject the other case.
	Body      string
	AudioFile string
}
