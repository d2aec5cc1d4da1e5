package models

import (
	"time"

	"github.com/uptrace/bun"
)

// GuaranteeState counts a user's consecutive pulls below the pool's floor
// rarity. Read and written inside the same transaction as the draw it
// affects, so concurrent draws cannot drop or double-count a miss.
type GuaranteeState struct {
	bun.BaseModel `bun:"table:guarantee_state"`
	UserID        int64     `bun:"user_id,pk" json:"user_id"`
	PoolSlug      string    `bun:"pool_slug,pk" json:"pool_slug"`
	Counter       int       `bun:"counter" json:"counter"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`
}
