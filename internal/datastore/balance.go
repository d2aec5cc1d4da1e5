package datastore

import (
	"context"
	"maffix/internal/models"
	"time"

	"github.com/uptrace/bun"
)

func CreateTableBalance(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Balance)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableLedgerEntry(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.LedgerEntry)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.LedgerEntry)(nil)).Index("index_ledger_entry_user_id").IfNotExists().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.LedgerEntry)(nil)).Index("index_ledger_entry_created_at").IfNotExists().Column("created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func GetOrCreateBalance(ctx context.Context, db bun.IDB, userID int64) (*models.Balance, error) {
	balance := &models.Balance{
		UserID:    userID,
		UpdatedAt: time.Now(),
	}
	_, err := db.NewInsert().Model(balance).On("CONFLICT (user_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return nil, err
	}

	err = db.NewSelect().Model(balance).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return balance, nil
}

// GetBalanceForUpdate locks the balance row for the rest of the transaction.
// Two concurrent debits serialize here instead of both reading a stale
// "sufficient funds" snapshot.
func GetBalanceForUpdate(ctx context.Context, db bun.IDB, userID int64) (*models.Balance, error) {
	var balance models.Balance
	err := db.NewSelect().Model(&balance).
		Where("user_id = ?", userID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &balance, nil
}

// DebitDiamonds decrements atomically, guarded so the balance can never go
// negative. Returns false when funds are insufficient.
func DebitDiamonds(ctx context.Context, db bun.IDB, userID int64, amount int64) (bool, error) {
	res, err := db.NewUpdate().Model((*models.Balance)(nil)).
		Set("diamonds = diamonds - ?", amount).
		Set("updated_at = current_timestamp").
		Where("user_id = ?", userID).
		Where("diamonds >= ?", amount).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func CreditDiamonds(ctx context.Context, db bun.IDB, userID int64, amount int64) error {
	_, err := db.NewUpdate().Model((*models.Balance)(nil)).
		Set("diamonds = diamonds + ?", amount).
		Set("updated_at = current_timestamp").
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

func GetDiamonds(ctx context.Context, db bun.IDB, userID int64) (int64, error) {
	var balance models.Balance
	err := db.NewSelect().Model(&balance).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return 0, err
	}

	return balance.Diamonds, nil
}

func InsertLedgerEntry(ctx context.Context, db bun.IDB, entry *models.LedgerEntry) error {
	_, err := db.NewInsert().Model(entry).Exec(ctx)
	return err
}

func GetLedgerEntries(ctx context.Context, db bun.IDB, userID int64, limit, offset int) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	err := db.NewSelect().Model(&entries).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
