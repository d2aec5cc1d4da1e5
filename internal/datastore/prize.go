package datastore

import (
	"context"
	"maffix/internal/models"

	"github.com/uptrace/bun"
)

func CreateTablePrizePool(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.PrizePool)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTablePrize(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Prize)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Prize)(nil)).Index("index_prize_pool_slug").IfNotExists().Column("pool_slug").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Prize)(nil)).Index("index_prize_pool_slug_active").IfNotExists().Column("pool_slug", "active").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func FindPoolBySlug(ctx context.Context, db bun.IDB, slug string) (*models.PrizePool, error) {
	var pool models.PrizePool
	err := db.NewSelect().Model(&pool).Where("slug = ?", slug).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &pool, nil
}

func GetActivePools(ctx context.Context, db bun.IDB) ([]*models.PrizePool, error) {
	var pools []*models.PrizePool
	err := db.NewSelect().Model(&pools).Where("active = true").Order("slug").Scan(ctx)
	if err != nil {
		return nil, err
	}

	return pools, nil
}

// GetDrawablePrizes returns active prizes that still have stock. The caller
// runs this inside the draw transaction so the rows are consistent with the
// reservations that follow.
func GetDrawablePrizes(ctx context.Context, db bun.IDB, poolSlug string) ([]*models.Prize, error) {
	var prizes []*models.Prize
	err := db.NewSelect().Model(&prizes).
		Where("pool_slug = ?", poolSlug).
		Where("active = true").
		Where("stock IS NULL OR stock > 0").
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return prizes, nil
}

// ReserveStock decrements a finite stock by one. Returns false when another
// draw already took the last unit; unlimited prizes always reserve.
func ReserveStock(ctx context.Context, db bun.IDB, prizeID int64) (bool, error) {
	res, err := db.NewUpdate().Model((*models.Prize)(nil)).
		Set("stock = stock - 1").
		Set("updated_at = current_timestamp").
		Where("id = ?", prizeID).
		Where("stock IS NOT NULL").
		Where("stock > 0").
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}

	// no row touched: either unlimited stock (fine) or exhausted
	exhausted, err := db.NewSelect().Model((*models.Prize)(nil)).
		Where("id = ?", prizeID).
		Where("stock IS NOT NULL").
		Where("stock <= 0").
		Exists(ctx)
	if err != nil {
		return false, err
	}

	return !exhausted, nil
}

func FindPrizesByIDs(ctx context.Context, db bun.IDB, ids []int64) ([]*models.Prize, error) {
	var prizes []*models.Prize
	err := db.NewSelect().Model(&prizes).Where("id IN (?)", bun.In(ids)).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return prizes, nil
}
