package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Draw/ledger error taxonomy. All of these are recoverable at the caller
// level; services wrap them with an errorx kind before they cross the API
// boundary.
var (
	ErrInvalidRequest      = errors.New("invalid draw request")
	ErrInsufficientFunds   = errors.New("insufficient diamonds")
	ErrNoEligibleTicket    = errors.New("no eligible ticket")
	ErrPoolExhausted       = errors.New("pool has no drawable prizes")
	ErrOutOfStock          = errors.New("prize out of stock")
	ErrPersistenceConflict = errors.New("conflicting concurrent transaction")
	ErrAlreadyRedeemed     = errors.New("prize already redeemed")
	ErrDrawLocked          = errors.New("draw already in progress")
)

const (
	CONFIG_SERVER_MODE               = "SERVER_MODE"
	CONFIG_DIAMOND_COST_SINGLE       = "DIAMOND_COST_SINGLE"
	CONFIG_DIAMOND_COST_MULTI        = "DIAMOND_COST_MULTI"
	CONFIG_GUARANTEE_THRESHOLD       = "GUARANTEE_THRESHOLD"
	CONFIG_GUARANTEE_FLOOR           = "GUARANTEE_FLOOR"
	CONFIG_STOCK_RETRY_LIMIT         = "STOCK_RETRY_LIMIT"
	CONFIG_TICKET_EXPIRY_SWEEP_BATCH = "TICKET_EXPIRY_SWEEP_BATCH"
	CONFIG_DRAW_RATE_LIMIT_PER_MIN   = "DRAW_RATE_LIMIT_PER_MIN"
	CONFIG_ANNOUNCE_CHAT_ID          = "ANNOUNCE_CHAT_ID"

	SERVER_MODE_DEVELOPMENT = "development"
	SERVER_MODE_PRODUCTION  = "production"

	DEFAULT_DIAMOND_COST_SINGLE = 100
	DEFAULT_DIAMOND_COST_MULTI  = 900
	DEFAULT_GUARANTEE_THRESHOLD = 10
	DEFAULT_GUARANTEE_FLOOR     = 3
	DEFAULT_STOCK_RETRY_LIMIT   = 3
	DEFAULT_SWEEP_BATCH         = 500
	DEFAULT_DRAW_RATE_PER_MIN   = 30

	PULL_COUNT_SINGLE = 1
	PULL_COUNT_MULTI  = 10

	CACHE_TTL_5_SECONDS = 5 * time.Second
	CACHE_TTL_1_MIN     = 1 * time.Minute
	CACHE_TTL_5_MINS    = 5 * time.Minute
	CACHE_TTL_1_HOUR    = 1 * time.Hour
)

func LockKeyUserDraw(userID int64, poolSlug string) string {
	return fmt.Sprintf("lock:user-draw:%d:%s", userID, poolSlug)
}

func LockKeyUserGrant(userID int64) string {
	return fmt.Sprintf("lock:user-grant:%d", userID)
}

func DBKeyUser(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", strings.ToLower(key))
}

func DBKeyPool(slug string) string {
	return fmt.Sprintf("pool:%s", strings.ToLower(slug))
}

func DBKeyActivePools() string {
	return "pools:active"
}

func DBKeyPoolChances(slug string) string {
	return fmt.Sprintf("pool:%s:chances", strings.ToLower(slug))
}

func LimitKeyUserDraw(userID int64) string {
	return fmt.Sprintf("limit:user-draw:%d", userID)
}
