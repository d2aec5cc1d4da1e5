package models

import "github.com/uptrace/bun"

// Grantor is an external collaborator allowed to deposit rewards: the
// mission service, the purchase/checkout service, an ops bonus tool. Each
// one authenticates with its own API key.
type Grantor struct {
	bun.BaseModel `bun:"table:grantor"`
	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	Name          string `bun:"name" json:"name"`
	Slug          string `bun:"slug" json:"slug"`
	APIKey        string `bun:"api_key" json:"api_key"`
	Enabled       bool   `bun:"enabled" json:"enabled"`
}
