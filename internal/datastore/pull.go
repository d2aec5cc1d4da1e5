package datastore

import (
	"context"
	"maffix/internal/models"
	"time"

	"github.com/uptrace/bun"
)

func CreateTablePullRecord(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.PullRecord)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.PullRecord)(nil)).Index("index_pull_record_user_id").IfNotExists().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.PullRecord)(nil)).Index("index_pull_record_created_at").IfNotExists().Column("created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableUserPrize(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.UserPrizeEntry)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.UserPrizeEntry)(nil)).Index("index_user_prize_user_id").IfNotExists().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.UserPrizeEntry)(nil)).Index("index_user_prize_pull_id").IfNotExists().Column("pull_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// InsertPullRecord appends to the pull history. Rows are immutable once
// written; there is deliberately no update function in this file.
func InsertPullRecord(ctx context.Context, db bun.IDB, record *models.PullRecord) error {
	_, err := db.NewInsert().Model(record).Exec(ctx)
	return err
}

func InsertUserPrizeEntries(ctx context.Context, db bun.IDB, entries []*models.UserPrizeEntry) error {
	if len(entries) == 0 {
		return nil
	}

	_, err := db.NewInsert().Model(&entries).Exec(ctx)
	return err
}

func GetPullRecords(ctx context.Context, db bun.IDB, userID int64, limit, offset int) ([]*models.PullRecord, error) {
	var records []*models.PullRecord
	err := db.NewSelect().Model(&records).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func GetUserPrizeEntries(ctx context.Context, db bun.IDB, userID int64, limit, offset int) ([]*models.UserPrizeEntry, error) {
	var entries []*models.UserPrizeEntry
	err := db.NewSelect().Model(&entries).
		Relation("Prize").
		Where("user_prize.user_id = ?", userID).
		Order("user_prize.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func FindUserPrizeEntry(ctx context.Context, db bun.IDB, userID int64, entryID int64) (*models.UserPrizeEntry, error) {
	var entry models.UserPrizeEntry
	err := db.NewSelect().Model(&entry).
		Where("id = ?", entryID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// RedeemUserPrizeEntry sets the redeemed flag at most once; returns false
// when the entry was already redeemed.
func RedeemUserPrizeEntry(ctx context.Context, db bun.IDB, userID int64, entryID int64, now time.Time) (bool, error) {
	res, err := db.NewUpdate().Model((*models.UserPrizeEntry)(nil)).
		Set("redeemed = true").
		Set("redeemed_at = ?", now).
		Where("id = ?", entryID).
		Where("user_id = ?", userID).
		Where("redeemed = false").
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
