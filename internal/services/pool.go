package services

import (
	"context"
	"database/sql"

	"maffix/internal/datastore"
	"maffix/internal/models"
	"maffix/internal/pkg/caching"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

// ServicePool serves the read-mostly pool catalog. Admin mutation of pools
// and prizes happens in the back-office, outside this engine; draws read
// snapshots transactionally through SnapshotTx.
type ServicePool struct {
	container  *do.Injector
	postgresDB *bun.DB
	cache      caching.Cache

	serviceConfig *ServiceConfig
}

func NewServicePool(container *do.Injector) (*ServicePool, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	return &ServicePool{container, postgresDB, cache, serviceConfig}, nil
}

func (service *ServicePool) GetActivePools(ctx context.Context) ([]*models.PrizePool, error) {
	callback := func() ([]*models.PrizePool, error) {
		return datastore.GetActivePools(ctx, service.postgresDB)
	}

	return caching.UseCache(ctx, service.cache, DBKeyActivePools(), CACHE_TTL_1_MIN, callback)
}

func (service *ServicePool) FindPool(ctx context.Context, slug string) (*models.PrizePool, error) {
	callback := func() (*models.PrizePool, error) {
		pool, err := datastore.FindPoolBySlug(ctx, service.postgresDB, slug)
		if err == sql.ErrNoRows {
			return nil, errorx.Wrap(ErrInvalidRequest, errorx.NotExist)
		}
		return pool, err
	}

	return caching.UseCache(ctx, service.cache, DBKeyPool(slug), CACHE_TTL_1_MIN, callback)
}

// SnapshotTx reads the drawable prizes inside the caller's transaction so
// stock and weight stay consistent with the reservations that follow.
func (service *ServicePool) SnapshotTx(ctx context.Context, tx bun.IDB, pool *models.PrizePool) (*models.PoolSnapshot, error) {
	prizes, err := datastore.GetDrawablePrizes(ctx, tx, pool.Slug)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, prize := range prizes {
		if prize.Weight > 0 {
			total += prize.Weight
		}
	}

	return &models.PoolSnapshot{
		Pool:        pool,
		Prizes:      prizes,
		TotalWeight: total,
	}, nil
}

// PoolChances is the browse view: per-prize win percentage derived from the
// current weights. Cached briefly; the draw path never reads this.
func (service *ServicePool) PoolChances(ctx context.Context, slug string) ([]*models.PrizeChance, error) {
	callback := func() ([]*models.PrizeChance, error) {
		pool, err := service.FindPool(ctx, slug)
		if err != nil {
			return nil, err
		}

		snapshot, err := service.SnapshotTx(ctx, service.postgresDB, pool)
		if err != nil {
			return nil, err
		}

		chances := make([]*models.PrizeChance, 0, len(snapshot.Prizes))
		for _, prize := range snapshot.Prizes {
			chance := float64(0)
			if snapshot.TotalWeight > 0 {
				chance = float64(prize.Weight) / float64(snapshot.TotalWeight) * 100
			}
			chances = append(chances, &models.PrizeChance{
				ID:       prize.ID,
				Name:     prize.Name,
				ImageURL: prize.ImageURL,
				Rarity:   prize.Rarity.String(),
				Chance:   chance,
				Stock:    prize.Stock,
			})
		}

		return chances, nil
	}

	return caching.UseCache(ctx, service.cache, DBKeyPoolChances(slug), CACHE_TTL_1_MIN, callback)
}

// GuaranteeThreshold resolves the pool's pity threshold, falling back to the
// config table and then the compiled default.
func (service *ServicePool) GuaranteeThreshold(ctx context.Context, pool *models.PrizePool) int {
	if pool.GuaranteeThreshold > 0 {
		return pool.GuaranteeThreshold
	}

	threshold, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_GUARANTEE_THRESHOLD, DEFAULT_GUARANTEE_THRESHOLD)
	return threshold
}

func (service *ServicePool) GuaranteeFloor(ctx context.Context, pool *models.PrizePool) models.Rarity {
	if pool.GuaranteeFloor.Valid() {
		return pool.GuaranteeFloor
	}

	floor, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_GUARANTEE_FLOOR, DEFAULT_GUARANTEE_FLOOR)
	return models.Rarity(floor)
}

func (service *ServicePool) CostFor(ctx context.Context, pool *models.PrizePool, pullCount int) int64 {
	if pullCount == PULL_COUNT_MULTI {
		if pool.CostMulti > 0 {
			return pool.CostMulti
		}
		cost, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_DIAMOND_COST_MULTI, DEFAULT_DIAMOND_COST_MULTI)
		return int64(cost)
	}

	if pool.CostSingle > 0 {
		return pool.CostSingle
	}
	cost, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_DIAMOND_COST_SINGLE, DEFAULT_DIAMOND_COST_SINGLE)
	return int64(cost)
}
