package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	TicketKindSingle  = "SINGLE"
	TicketKindMulti10 = "MULTI_10X"
)

// Ticket is a discrete consumable grant. It is marked used exactly once and
// never deleted, so the audit trail stays complete.
type Ticket struct {
	bun.BaseModel `bun:"table:ticket"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64      `bun:"user_id" json:"user_id"`
	Kind          string     `bun:"kind" json:"kind"`
	Source        string     `bun:"source" json:"source"`
	Used          bool       `bun:"used,default:false" json:"used"`
	UsedAt        *time.Time `bun:"used_at" json:"used_at"`
	UsedFor       string     `bun:"used_for" json:"used_for"`
	ExpiresAt     *time.Time `bun:"expires_at" json:"expires_at"`
	CreatedAt     time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// Eligible reports whether the ticket can still pay for a draw.
func (t *Ticket) Eligible(now time.Time) bool {
	if t.Used {
		return false
	}
	if t.ExpiresAt != nil && !t.ExpiresAt.After(now) {
		return false
	}
	return true
}
