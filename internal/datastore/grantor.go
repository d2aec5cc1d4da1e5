package datastore

import (
	"context"
	"maffix/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableGrantor(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Grantor)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Grantor)(nil)).Index("index_grantor_api_key").IfNotExists().Unique().Column("api_key").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func FindGrantorByAPIKey(ctx context.Context, db bun.IDB, apiKey string) (*models.Grantor, error) {
	var grantor models.Grantor
	err := db.NewSelect().Model(&grantor).
		Where("api_key = ?", apiKey).
		Where("enabled = true").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &grantor, nil
}
