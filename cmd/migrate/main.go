package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"

	"maffix/internal/datastore"
	"maffix/internal/models"
	"maffix/internal/pkg/caching"
	"maffix/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	app := &cli.App{
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(),
			commandConfigMigration(),
			commandSeedPool(),
			commandInsertGrantor(),
			commandSetConfig(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigration() *cli.Command {
	return &cli.Command{
		Name: "migrate",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableUser(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableConfig(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableBalance(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableLedgerEntry(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableTicket(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTablePrizePool(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTablePrize(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableGuaranteeState(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTablePullRecord(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableUserPrize(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableGrantor(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			fmt.Println("Migration success")

			return nil
		},
	}
}

// insert default configs to db
func commandConfigMigration() *cli.Command {
	return &cli.Command{
		Name:        "migrate-config",
		Description: "Insert default configs to db",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			configs := []models.Config{
				{Key: services.CONFIG_SERVER_MODE, Value: services.SERVER_MODE_PRODUCTION},
				{Key: services.CONFIG_DIAMOND_COST_SINGLE, Value: strconv.Itoa(services.DEFAULT_DIAMOND_COST_SINGLE)},
				{Key: services.CONFIG_DIAMOND_COST_MULTI, Value: strconv.Itoa(services.DEFAULT_DIAMOND_COST_MULTI)},
				{Key: services.CONFIG_GUARANTEE_THRESHOLD, Value: strconv.Itoa(services.DEFAULT_GUARANTEE_THRESHOLD)},
				{Key: services.CONFIG_GUARANTEE_FLOOR, Value: strconv.Itoa(services.DEFAULT_GUARANTEE_FLOOR)},
				{Key: services.CONFIG_STOCK_RETRY_LIMIT, Value: strconv.Itoa(services.DEFAULT_STOCK_RETRY_LIMIT)},
				{Key: services.CONFIG_TICKET_EXPIRY_SWEEP_BATCH, Value: strconv.Itoa(services.DEFAULT_SWEEP_BATCH)},
				{Key: services.CONFIG_DRAW_RATE_LIMIT_PER_MIN, Value: strconv.Itoa(services.DEFAULT_DRAW_RATE_PER_MIN)},
				{Key: services.CONFIG_ANNOUNCE_CHAT_ID, Value: ""},
				{Key: "CRONJOB_TIME_TICKET_SWEEP", Value: "*/10 * * * *"},
			}

			for _, config := range configs {
				_, err = db.NewInsert().Model(&config).Exec(ctx)
				if err != nil {
					log.Println(err)
				}
			}

			fmt.Println("Migration success")

			return nil
		},
	}
}

// seed a demo pool so a fresh environment has something to draw from
func commandSeedPool() *cli.Command {
	return &cli.Command{
		Name: "seed-pool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "slug",
				Value: "launch-event",
			},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			slug := c.String("slug")
			pool := &models.PrizePool{
				Slug:               slug,
				Name:               "Launch Event",
				Active:             true,
				GuaranteeThreshold: services.DEFAULT_GUARANTEE_THRESHOLD,
				GuaranteeFloor:     models.RaritySuperRare,
				CostSingle:         services.DEFAULT_DIAMOND_COST_SINGLE,
				CostMulti:          services.DEFAULT_DIAMOND_COST_MULTI,
			}

			_, err = db.NewInsert().Model(pool).On("CONFLICT (slug) DO NOTHING").Exec(ctx)
			if err != nil {
				return err
			}

			signedCardStock := 10
			prizes := []*models.Prize{
				{PoolSlug: slug, Name: "Photocard", Rarity: models.RarityCommon, Weight: 6400, Active: true},
				{PoolSlug: slug, Name: "Voice Message", Rarity: models.RarityRare, Weight: 3000, Active: true},
				{PoolSlug: slug, Name: "Video Call Slot", Rarity: models.RaritySuperRare, Weight: 550, Active: true},
				{PoolSlug: slug, Name: "Signed Card", Rarity: models.RarityUltraRare, Weight: 50, Stock: &signedCardStock, Active: true},
			}

			for _, prize := range prizes {
				_, err = db.NewInsert().Model(prize).Exec(ctx)
				if err != nil {
					log.Println(err)
				}
			}

			fmt.Println("Seed success")

			return nil
		},
	}
}

func commandInsertGrantor() *cli.Command {
	return &cli.Command{
		Name: "insert-grantor",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "slug",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "api-key",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			grantor := &models.Grantor{
				Name:    c.String("name"),
				Slug:    c.String("slug"),
				APIKey:  c.String("api-key"),
				Enabled: true,
			}

			_, err = db.NewInsert().Model(grantor).Exec(ctx)
			if err != nil {
				return err
			}

			fmt.Println("Grantor created:", grantor.Slug)

			return nil
		},
	}
}

// set-config goes through ServiceConfig so the cached value is invalidated
// together with the write.
func commandSetConfig() *cli.Command {
	return &cli.Command{
		Name: "set-config",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "key",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "value",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()

			injector := do.New()
			do.Provide(injector, func(i *do.Injector) (*bun.DB, error) {
				return getDb()
			})
			do.ProvideNamed(injector, "redis-cache", func(i *do.Injector) (redis.UniversalClient, error) {
				return db.InitRedis(&db.RedisConfig{URL: os.Getenv("REDIS_CACHE")})
			})
			do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
				dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache")
				if err != nil {
					return nil, err
				}
				return caching.NewCacheRedis(dbRedis, false)
			})

			serviceConfig, err := services.NewServiceConfig(injector)
			if err != nil {
				return err
			}

			if err := serviceConfig.SetConfig(ctx, c.String("key"), c.String("value")); err != nil {
				return err
			}

			fmt.Println("Config updated:", c.String("key"))

			return nil
		},
	}
}

func getDb() (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(os.Getenv("DB_DSN")),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))

	db := bun.NewDB(sqldb, pgdialect.New())
	return db, nil
}
