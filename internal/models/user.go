package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:user"`
	ID            int64     `bun:"id,pk" json:"id"`
	Username      string    `bun:"username" json:"username"`
	DisplayName   string    `bun:"display_name" json:"display_name"`
	PhotoURL      string    `bun:"photo_url" json:"photo_url"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`

	IsNewUser bool `bun:"-" json:"is_new_user,omitempty"`
}

// UserFromAuth is the already-authenticated caller identity extracted from
// the bearer token. The engine never issues sessions itself.
type UserFromAuth struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}
