package services

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"maffix/internal/datastore"
	"maffix/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// setupStore opens the database named by TEST_DB_DSN, creates the schema and
// wipes every table. Tests that need a real store skip when the variable is
// unset.
func setupStore(t *testing.T) *bun.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	creates := []func(context.Context, *bun.DB) error{
		datastore.CreateTableUser,
		datastore.CreateTableBalance,
		datastore.CreateTableLedgerEntry,
		datastore.CreateTableTicket,
		datastore.CreateTablePrizePool,
		datastore.CreateTablePrize,
		datastore.CreateTableGuaranteeState,
		datastore.CreateTablePullRecord,
		datastore.CreateTableUserPrize,
	}
	for _, create := range creates {
		if err := create(ctx, db); err != nil {
			t.Fatalf("create table: %v", err)
		}
	}

	wipe := []any{
		(*models.LedgerEntry)(nil),
		(*models.Ticket)(nil),
		(*models.UserPrizeEntry)(nil),
		(*models.PullRecord)(nil),
		(*models.GuaranteeState)(nil),
		(*models.Prize)(nil),
		(*models.PrizePool)(nil),
		(*models.Balance)(nil),
		(*models.User)(nil),
	}
	for _, model := range wipe {
		if _, err := db.NewTruncateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("truncate: %v", err)
		}
	}

	return db
}

// newStoreDrawService wires a ServiceDraw with only the pieces drawTx
// touches; redis-backed collaborators stay nil because the transactional
// core never reaches them.
func newStoreDrawService(db *bun.DB) *ServiceDraw {
	return &ServiceDraw{
		postgresDB:    db,
		servicePool:   &ServicePool{postgresDB: db},
		serviceLedger: &ServiceLedger{postgresDB: db},
	}
}

// runDraw executes the transactional core the same way Draw does, with the
// resolved pool parameters supplied directly.
func runDraw(ctx context.Context, service *ServiceDraw, user *models.User, pool *models.PrizePool, req *DrawRequest, threshold int, floor models.Rarity, cost int64) (*drawOutcome, error) {
	pullID := uuid.NewString()
	rng := rand.New(rand.NewSource(1))

	var outcome *drawOutcome
	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		outcome, txErr = service.drawTx(ctx, tx, user, pool, req, threshold, floor, cost, DEFAULT_STOCK_RETRY_LIMIT, pullID, rng)
		return txErr
	})
	return outcome, err
}

func storeUser(t *testing.T, db *bun.DB, id int64) *models.User {
	t.Helper()

	user, err := datastore.CreateUser(context.Background(), db, &models.User{
		ID:        id,
		Username:  fmt.Sprintf("user-%d", id),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func fundDiamonds(t *testing.T, db *bun.DB, userID int64, amount int64) {
	t.Helper()

	ctx := context.Background()
	if _, err := datastore.GetOrCreateBalance(ctx, db, userID); err != nil {
		t.Fatalf("create balance: %v", err)
	}
	if amount > 0 {
		if err := datastore.CreditDiamonds(ctx, db, userID, amount); err != nil {
			t.Fatalf("credit diamonds: %v", err)
		}
	}
}

func seedPool(t *testing.T, db *bun.DB, slug string, prizes ...*models.Prize) *models.PrizePool {
	t.Helper()

	ctx := context.Background()
	pool := &models.PrizePool{
		Slug:               slug,
		Name:               slug,
		Active:             true,
		GuaranteeThreshold: DEFAULT_GUARANTEE_THRESHOLD,
		GuaranteeFloor:     models.Rarity(DEFAULT_GUARANTEE_FLOOR),
		CostSingle:         DEFAULT_DIAMOND_COST_SINGLE,
		CostMulti:          DEFAULT_DIAMOND_COST_MULTI,
		CreatedAt:          time.Now(),
	}
	if _, err := db.NewInsert().Model(pool).Exec(ctx); err != nil {
		t.Fatalf("insert pool: %v", err)
	}

	for _, prize := range prizes {
		prize.PoolSlug = slug
		prize.Active = true
		prize.CreatedAt = time.Now()
		if _, err := db.NewInsert().Model(prize).Exec(ctx); err != nil {
			t.Fatalf("insert prize: %v", err)
		}
	}

	return pool
}
