package datastore

import (
	"context"
	"maffix/internal/models"
	"time"

	"github.com/uptrace/bun"
)

func CreateTableGuaranteeState(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.GuaranteeState)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// GetGuaranteeStateForUpdate upserts the row if missing and locks it for the
// rest of the draw transaction, so the read-modify-write cannot lose updates.
func GetGuaranteeStateForUpdate(ctx context.Context, db bun.IDB, userID int64, poolSlug string) (*models.GuaranteeState, error) {
	state := &models.GuaranteeState{
		UserID:    userID,
		PoolSlug:  poolSlug,
		UpdatedAt: time.Now(),
	}
	_, err := db.NewInsert().Model(state).On("CONFLICT (user_id, pool_slug) DO NOTHING").Exec(ctx)
	if err != nil {
		return nil, err
	}

	err = db.NewSelect().Model(state).
		Where("user_id = ?", userID).
		Where("pool_slug = ?", poolSlug).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return state, nil
}

func UpdateGuaranteeCounter(ctx context.Context, db bun.IDB, state *models.GuaranteeState) error {
	_, err := db.NewUpdate().Model(state).
		Set("counter = ?", state.Counter).
		Set("updated_at = current_timestamp").
		Where("user_id = ?", state.UserID).
		Where("pool_slug = ?", state.PoolSlug).
		Exec(ctx)
	return err
}

func GetGuaranteeState(ctx context.Context, db bun.IDB, userID int64, poolSlug string) (*models.GuaranteeState, error) {
	var state models.GuaranteeState
	err := db.NewSelect().Model(&state).
		Where("user_id = ?", userID).
		Where("pool_slug = ?", poolSlug).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &state, nil
}
