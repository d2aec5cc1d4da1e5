package services

import (
	"context"
	"database/sql"
	"time"

	"maffix/internal/datastore"
	"maffix/internal/models"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

// ServiceInventory reads and redeems won prizes. Awarding happens only in
// the draw transaction; this service never creates entries.
type ServiceInventory struct {
	container  *do.Injector
	postgresDB *bun.DB
}

func NewServiceInventory(container *do.Injector) (*ServiceInventory, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	return &ServiceInventory{container, postgresDB}, nil
}

func (service *ServiceInventory) GetUserPrizes(ctx context.Context, userID int64, limit, offset int) ([]*models.UserPrizeEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return datastore.GetUserPrizeEntries(ctx, service.postgresDB, userID, limit, offset)
}

// Redeem marks a won prize redeemed exactly once.
func (service *ServiceInventory) Redeem(ctx context.Context, userID int64, entryID int64) (*models.UserPrizeEntry, error) {
	entry, err := datastore.FindUserPrizeEntry(ctx, service.postgresDB, userID, entryID)
	if err == sql.ErrNoRows {
		return nil, errorx.Wrap(ErrInvalidRequest, errorx.NotExist)
	}
	if err != nil {
		return nil, err
	}

	if entry.Redeemed {
		return nil, errorx.Wrap(ErrAlreadyRedeemed, errorx.Invalid)
	}

	now := time.Now()
	ok, err := datastore.RedeemUserPrizeEntry(ctx, service.postgresDB, userID, entryID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// raced with another redemption of the same entry
		return nil, errorx.Wrap(ErrAlreadyRedeemed, errorx.Invalid)
	}

	entry.Redeemed = true
	entry.RedeemedAt = &now
	return entry, nil
}
