package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	CurrencyDiamond = "DIAMOND"
	CurrencyTicket  = "TICKET"
)

type Balance struct {
	bun.BaseModel `bun:"table:balance"`
	UserID        int64     `bun:"user_id,pk" json:"user_id"`
	Diamonds      int64     `bun:"diamonds" json:"diamonds"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`
}

// LedgerEntry explains one balance mutation. The balance is never changed
// without appending one of these in the same transaction.
type LedgerEntry struct {
	bun.BaseModel `bun:"table:ledger_entry"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID        int64     `bun:"user_id" json:"user_id"`
	Kind          string    `bun:"kind" json:"kind"`
	Amount        int64     `bun:"amount" json:"amount"`
	Source        string    `bun:"source" json:"source"`
	BalanceAfter  int64     `bun:"balance_after" json:"balance_after"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// BalanceSummary is the read-API view of a user's spendable assets.
type BalanceSummary struct {
	Diamonds      int64          `json:"diamonds"`
	TicketsByKind map[string]int `json:"tickets_by_kind"`
}
