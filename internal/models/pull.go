package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PullRecord is the append-only system of record for a draw request: one row
// per request, covering every pull in the batch. Never updated after insert.
type PullRecord struct {
	bun.BaseModel      `bun:"table:pull_record"`
	ID                 string    `bun:"id,pk" json:"id"`
	UserID             int64     `bun:"user_id" json:"user_id"`
	PoolSlug           string    `bun:"pool_slug" json:"pool_slug"`
	CostKind           string    `bun:"cost_kind" json:"cost_kind"`
	CostAmount         int64     `bun:"cost_amount" json:"cost_amount"`
	PrizeIDs           []int64   `bun:"prize_ids,type:jsonb" json:"prize_ids"`
	GuaranteeTriggered bool      `bun:"guarantee_triggered" json:"guarantee_triggered"`
	CreatedAt          time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`

	Prizes []*Prize `bun:"-" json:"prizes,omitempty"`
}

// GuaranteeProgress is the read-API view of a user's pity counter in a pool.
type GuaranteeProgress struct {
	PoolSlug  string `json:"pool_slug"`
	Counter   int    `json:"counter"`
	Threshold int    `json:"threshold"`
	Floor     string `json:"floor"`
}

// UserPrizeEntry links a user to one won prize instance. Redemption flips the
// flag at most once.
type UserPrizeEntry struct {
	bun.BaseModel `bun:"table:user_prize"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64      `bun:"user_id" json:"user_id"`
	PrizeID       int64      `bun:"prize_id" json:"prize_id"`
	PullID        string     `bun:"pull_id" json:"pull_id"`
	Redeemed      bool       `bun:"redeemed,default:false" json:"redeemed"`
	RedeemedAt    *time.Time `bun:"redeemed_at" json:"redeemed_at"`
	CreatedAt     time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`

	Prize *Prize `bun:"rel:belongs-to,join:prize_id=id" json:"prize,omitempty"`
}

// DrawResult is the caller-facing outcome of a committed draw.
type DrawResult struct {
	PullID             string          `json:"pull_id"`
	PulledPrizes       []*Prize        `json:"pulled_prizes"`
	GuaranteeTriggered bool            `json:"guarantee_triggered"`
	NewBalance         *BalanceSummary `json:"new_balance"`
}

// RecentWin is the redis feed item shown in the fan app.
type RecentWin struct {
	UserID    int64     `json:"user_id" msgpack:"user_id"`
	Username  string    `json:"username" msgpack:"username"`
	PrizeName string    `json:"prize_name" msgpack:"prize_name"`
	Rarity    string    `json:"rarity" msgpack:"rarity"`
	PoolSlug  string    `json:"pool_slug" msgpack:"pool_slug"`
	WonAt     time.Time `json:"won_at" msgpack:"won_at"`
}
