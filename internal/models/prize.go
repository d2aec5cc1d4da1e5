package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Rarity is an ordered tier: a higher value is always a better prize. The
// guarantee floor compares against this ordering.
type Rarity int

const (
	RarityCommon    Rarity = 1
	RarityRare      Rarity = 2
	RaritySuperRare Rarity = 3
	RarityUltraRare Rarity = 4
)

func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "COMMON"
	case RarityRare:
		return "RARE"
	case RaritySuperRare:
		return "SUPER_RARE"
	case RarityUltraRare:
		return "ULTRA_RARE"
	}
	return "UNKNOWN"
}

func (r Rarity) Valid() bool {
	return r >= RarityCommon && r <= RarityUltraRare
}

type PrizePool struct {
	bun.BaseModel `bun:"table:prize_pool"`
	Slug          string `bun:"slug,pk" json:"slug"`
	Name          string `bun:"name" json:"name"`
	Active        bool   `bun:"active,default:true" json:"active"`
	// Counter threshold after which a pull is forced to the floor rarity.
	GuaranteeThreshold int       `bun:"guarantee_threshold" json:"guarantee_threshold"`
	GuaranteeFloor     Rarity    `bun:"guarantee_floor" json:"guarantee_floor"`
	CostSingle         int64     `bun:"cost_single" json:"cost_single"`
	CostMulti          int64     `bun:"cost_multi" json:"cost_multi"`
	CreatedAt          time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt          time.Time `bun:"updated_at" json:"updated_at"`
}

type Prize struct {
	bun.BaseModel `bun:"table:prize"`
	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	PoolSlug      string `bun:"pool_slug" json:"pool_slug"`
	Name          string `bun:"name" json:"name"`
	ImageURL      string `bun:"image_url" json:"image_url"`
	Rarity        Rarity `bun:"rarity" json:"rarity"`
	Weight        int    `bun:"weight" json:"weight"`
	// nil means unlimited stock.
	Stock     *int      `bun:"stock" json:"stock"`
	Active    bool      `bun:"active,default:true" json:"active"`
	CreatedAt time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at" json:"updated_at"`
}

// PoolSnapshot is the drawable view of a pool, read inside the draw
// transaction so weights and stock stay consistent with what gets reserved.
type PoolSnapshot struct {
	Pool        *PrizePool `json:"pool"`
	Prizes      []*Prize   `json:"prizes"`
	TotalWeight int        `json:"total_weight"`
}

// PrizeChance is the browse-API view with the derived win percentage.
type PrizeChance struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	ImageURL string  `json:"image_url"`
	Rarity   string  `json:"rarity"`
	Chance   float64 `json:"chance"`
	Stock    *int    `json:"stock,omitempty"`
}
