package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"math/rand"
	"time"

	"maffix/internal/datastore"
	"maffix/internal/datastore/redis_store"
	"maffix/internal/interfaces"
	"maffix/internal/models"

	"github.com/go-redis/redis_rate/v10"
	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	PayWithDiamond = "diamond"
	PayWithTicket  = "ticket"
)

type DrawRequest struct {
	PoolSlug  string `json:"pool_slug"`
	PullCount int    `json:"pull_count"`
	PayWith   string `json:"pay_with"`
}

type drawOutcome struct {
	awarded            []*models.Prize
	guaranteeTriggered bool
	costKind           string
	costAmount         int64
}

// ServiceDraw is the transactional draw orchestrator. One request is one
// atomic unit: pay, select N prizes, update pity, record, award. Any failure
// past validation rolls everything back; a user is never charged without the
// prizes nor awarded without the charge.
type ServiceDraw struct {
	container  *do.Injector
	postgresDB *bun.DB
	redisDB    redis.UniversalClient
	rs         *redsync.Redsync

	servicePool   *ServicePool
	serviceLedger *ServiceLedger
	serviceConfig *ServiceConfig
	limiter       interfaces.Limiter
	bot           *Bot
}

func NewServiceDraw(container *do.Injector) (*ServiceDraw, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	servicePool, err := do.Invoke[*ServicePool](container)
	if err != nil {
		return nil, err
	}

	serviceLedger, err := do.Invoke[*ServiceLedger](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	limiter, err := do.Invoke[interfaces.Limiter](container)
	if err != nil {
		return nil, err
	}

	bot, err := do.Invoke[*Bot](container)
	if err != nil {
		return nil, err
	}

	return &ServiceDraw{container, postgresDB, redisDB, rs, servicePool, serviceLedger, serviceConfig, limiter, bot}, nil
}

func (service *ServiceDraw) Draw(ctx context.Context, user *models.User, req *DrawRequest) (*models.DrawResult, error) {
	if req == nil || (req.PullCount != PULL_COUNT_SINGLE && req.PullCount != PULL_COUNT_MULTI) {
		return nil, errorx.Wrap(ErrInvalidRequest, errorx.Validation)
	}
	if req.PayWith == "" {
		req.PayWith = PayWithDiamond
	}
	if req.PayWith != PayWithDiamond && req.PayWith != PayWithTicket {
		return nil, errorx.Wrap(ErrInvalidRequest, errorx.Validation)
	}

	ratePerMin, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_DRAW_RATE_LIMIT_PER_MIN, DEFAULT_DRAW_RATE_PER_MIN)
	if err := service.limiter.Allow(ctx, LimitKeyUserDraw(user.ID), redis_rate.PerMinute(ratePerMin)); err != nil {
		return nil, err
	}

	pool, err := service.servicePool.FindPool(ctx, req.PoolSlug)
	if err != nil {
		return nil, err
	}
	if !pool.Active {
		return nil, errorx.Wrap(ErrInvalidRequest, errorx.Validation)
	}

	threshold := service.servicePool.GuaranteeThreshold(ctx, pool)
	floor := service.servicePool.GuaranteeFloor(ctx, pool)
	cost := service.servicePool.CostFor(ctx, pool, req.PullCount)
	retryLimit, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_STOCK_RETRY_LIMIT, DEFAULT_STOCK_RETRY_LIMIT)

	// double-submit guard: a user runs at most one draw per pool at a time
	mutex := service.rs.NewMutex(LockKeyUserDraw(user.ID, pool.Slug))
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrDrawLocked, errorx.Invalid)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	pullID := uuid.NewString()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var outcome *drawOutcome
	err = service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		outcome, txErr = service.drawTx(ctx, tx, user, pool, req, threshold, floor, cost, retryLimit, pullID, rng)
		return txErr
	})
	if err != nil {
		return nil, wrapDrawError(err)
	}

	balance, err := service.serviceLedger.BalanceSummary(ctx, user.ID)
	if err != nil {
		log.Println("balance summary after draw:", err)
	}

	service.publishWins(user, pool, outcome.awarded, floor)

	return &models.DrawResult{
		PullID:             pullID,
		PulledPrizes:       outcome.awarded,
		GuaranteeTriggered: outcome.guaranteeTriggered,
		NewBalance:         balance,
	}, nil
}

// drawTx is the transactional core of a draw: pay, select, update pity,
// record. It runs entirely inside the caller's transaction so a failure at
// any stage undoes every earlier one.
func (service *ServiceDraw) drawTx(ctx context.Context, tx bun.Tx, user *models.User, pool *models.PrizePool, req *DrawRequest, threshold int, floor models.Rarity, cost int64, retryLimit int, pullID string, rng *rand.Rand) (*drawOutcome, error) {
	outcome := &drawOutcome{}

	// Paying
	if req.PayWith == PayWithDiamond {
		if err := service.serviceLedger.DebitDiamondsTx(ctx, tx, user.ID, cost, "draw:"+pullID); err != nil {
			return nil, err
		}
		outcome.costKind = models.CurrencyDiamond
		outcome.costAmount = cost
	} else {
		kind, used, err := service.serviceLedger.DebitTicketsTx(ctx, tx, user.ID, req.PullCount, "draw:"+pullID)
		if err != nil {
			return nil, err
		}
		outcome.costKind = models.CurrencyTicket + ":" + kind
		outcome.costAmount = int64(used)
	}

	// pity state is locked for the whole batch
	state, err := datastore.GetGuaranteeStateForUpdate(ctx, tx, user.ID, pool.Slug)
	if err != nil {
		return nil, err
	}

	// Selecting
	outcome.awarded = make([]*models.Prize, 0, req.PullCount)
	for i := 0; i < req.PullCount; i++ {
		forced := ShouldForceGuarantee(state, threshold)

		prize, err := service.selectOne(ctx, tx, pool, rng, forced, floor, retryLimit)
		if err != nil {
			return nil, err
		}

		if forced && prize.Rarity >= floor {
			outcome.guaranteeTriggered = true
		}
		ApplyPullOutcome(state, prize.Rarity, floor)
		outcome.awarded = append(outcome.awarded, prize)
	}

	// Recording
	if err := datastore.UpdateGuaranteeCounter(ctx, tx, state); err != nil {
		return nil, err
	}

	prizeIDs := make([]int64, 0, len(outcome.awarded))
	for _, prize := range outcome.awarded {
		prizeIDs = append(prizeIDs, prize.ID)
	}

	err = datastore.InsertPullRecord(ctx, tx, &models.PullRecord{
		ID:                 pullID,
		UserID:             user.ID,
		PoolSlug:           pool.Slug,
		CostKind:           outcome.costKind,
		CostAmount:         outcome.costAmount,
		PrizeIDs:           prizeIDs,
		GuaranteeTriggered: outcome.guaranteeTriggered,
		CreatedAt:          time.Now(),
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*models.UserPrizeEntry, 0, len(outcome.awarded))
	for _, prize := range outcome.awarded {
		entries = append(entries, &models.UserPrizeEntry{
			UserID:    user.ID,
			PrizeID:   prize.ID,
			PullID:    pullID,
			CreatedAt: time.Now(),
		})
	}

	if err := datastore.InsertUserPrizeEntries(ctx, tx, entries); err != nil {
		return nil, err
	}
	return outcome, nil
}

// selectOne runs one weighted pick plus stock reservation, refreshing the
// snapshot and re-rolling for a bounded number of attempts when a limited
// prize races out of stock underneath us.
func (service *ServiceDraw) selectOne(ctx context.Context, tx bun.Tx, pool *models.PrizePool, rng *rand.Rand, forced bool, floor models.Rarity, retryLimit int) (*models.Prize, error) {
	if retryLimit <= 0 {
		retryLimit = DEFAULT_STOCK_RETRY_LIMIT
	}

	for attempt := 0; attempt < retryLimit; attempt++ {
		snapshot, err := service.servicePool.SnapshotTx(ctx, tx, pool)
		if err != nil {
			return nil, err
		}
		if snapshot.TotalWeight <= 0 {
			return nil, ErrPoolExhausted
		}

		pickFloor := models.Rarity(0)
		if forced {
			pickFloor = floor
		}

		chooser, err := NewPrizeChooser(snapshot.Prizes, pickFloor)
		if errors.Is(err, ErrPoolExhausted) && forced {
			// the pool carries nothing at the floor; the guarantee cannot
			// invent stock, so fall back to the full snapshot
			chooser, err = NewPrizeChooser(snapshot.Prizes, 0)
		}
		if err != nil {
			return nil, err
		}

		prize := chooser.PickSource(rng)

		ok, err := datastore.ReserveStock(ctx, tx, prize.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			return prize, nil
		}
	}

	return nil, ErrOutOfStock
}

// publishWins pushes floor-or-above awards to the redis feed and announces
// ultra-rare ones. Fire and forget; the draw is already committed.
func (service *ServiceDraw) publishWins(user *models.User, pool *models.PrizePool, awarded []*models.Prize, floor models.Rarity) {
	wins := make([]*models.RecentWin, 0, len(awarded))
	for _, prize := range awarded {
		if prize.Rarity < floor {
			continue
		}
		wins = append(wins, &models.RecentWin{
			UserID:    user.ID,
			Username:  user.Username,
			PrizeName: prize.Name,
			Rarity:    prize.Rarity.String(),
			PoolSlug:  pool.Slug,
			WonAt:     time.Now(),
		})
	}
	if len(wins) == 0 {
		return
	}

	announceChatID, _ := service.serviceConfig.GetIntConfig(context.Background(), CONFIG_ANNOUNCE_CHAT_ID, 0)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		for _, win := range wins {
			if err := redis_store.PushRecentWin(ctx, service.redisDB, win); err != nil {
				log.Println("push recent win:", err)
			}
			if win.Rarity == models.RarityUltraRare.String() {
				if err := service.bot.AnnounceWin(int64(announceChatID), win); err != nil {
					log.Println("announce win:", err)
				}
			}
		}
	}()
}

func (service *ServiceDraw) RecentWins(ctx context.Context, poolSlug string, limit int) ([]*models.RecentWin, error) {
	wins, err := redis_store.GetRecentWins(ctx, service.redisDB, poolSlug, limit)
	if err != nil && err != redis.Nil {
		return nil, err
	}

	return wins, nil
}

func (service *ServiceDraw) GetPullHistory(ctx context.Context, userID int64, limit, offset int) ([]*models.PullRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	records, err := datastore.GetPullRecords(ctx, service.postgresDB, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.PrizeIDs...)
	}
	if len(ids) == 0 {
		return records, nil
	}

	prizes, err := datastore.FindPrizesByIDs(ctx, service.postgresDB, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.Prize, len(prizes))
	for _, prize := range prizes {
		byID[prize.ID] = prize
	}

	for _, record := range records {
		record.Prizes = make([]*models.Prize, 0, len(record.PrizeIDs))
		for _, id := range record.PrizeIDs {
			if prize, ok := byID[id]; ok {
				record.Prizes = append(record.Prizes, prize)
			}
		}
	}

	return records, nil
}

// GuaranteeProgress reports how close a user is to the pool's forced floor.
func (service *ServiceDraw) GuaranteeProgress(ctx context.Context, userID int64, poolSlug string) (*models.GuaranteeProgress, error) {
	pool, err := service.servicePool.FindPool(ctx, poolSlug)
	if err != nil {
		return nil, err
	}

	counter := 0
	state, err := datastore.GetGuaranteeState(ctx, service.postgresDB, userID, pool.Slug)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if state != nil {
		counter = state.Counter
	}

	return &models.GuaranteeProgress{
		PoolSlug:  pool.Slug,
		Counter:   counter,
		Threshold: service.servicePool.GuaranteeThreshold(ctx, pool),
		Floor:     service.servicePool.GuaranteeFloor(ctx, pool).String(),
	}, nil
}

// wrapDrawError attaches the errorx kind callers key off. Funds and
// validation failures are final; conflict-shaped failures are retryable by
// the caller.
func wrapDrawError(err error) error {
	switch {
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrNoEligibleTicket),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrPoolExhausted):
		return errorx.Wrap(err, errorx.Validation)
	case errors.Is(err, ErrOutOfStock):
		return errorx.Wrap(err, errorx.Service)
	case isConflictError(err):
		return errorx.Wrap(ErrPersistenceConflict, errorx.Service)
	default:
		return err
	}
}

// isConflictError matches serialization failures, deadlocks and persistence
// timeouts; all abort the transaction and are safe to retry from scratch.
func isConflictError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		code := pgErr.Field('C')
		return code == "40001" || code == "40P01" || code == "55P03"
	}

	return false
}
