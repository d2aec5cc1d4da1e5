package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"maffix/internal/datastore"
	"maffix/internal/models"

	"github.com/uptrace/bun"
)

func TestDrawInsufficientFundsLeavesStateUntouched(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()
	service := newStoreDrawService(db)

	user := storeUser(t, db, 101)
	pool := seedPool(t, db, "pool-funds", &models.Prize{Name: "Pin", Rarity: models.RarityCommon, Weight: 100})
	fundDiamonds(t, db, user.ID, 0)

	req := &DrawRequest{PoolSlug: pool.Slug, PullCount: 1, PayWith: PayWithDiamond}
	_, err := runDraw(ctx, service, user, pool, req, 0, models.RaritySuperRare, 1)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	diamonds, err := datastore.GetDiamonds(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("get diamonds: %v", err)
	}
	if diamonds != 0 {
		t.Fatalf("balance changed on failed draw: %d", diamonds)
	}

	entries, err := datastore.GetLedgerEntries(ctx, db, user.ID, 10, 0)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no ledger entries, got %d", len(entries))
	}

	records, err := datastore.GetPullRecords(ctx, db, user.ID, 10, 0)
	if err != nil {
		t.Fatalf("pull records: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no pull records, got %d", len(records))
	}
}

func TestDrawRollsBackPaymentWhenPoolExhausted(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()
	service := newStoreDrawService(db)

	user := storeUser(t, db, 102)
	gone := 0
	pool := seedPool(t, db, "pool-empty", &models.Prize{Name: "Signed Card", Rarity: models.RarityUltraRare, Weight: 100, Stock: &gone})
	fundDiamonds(t, db, user.ID, 500)

	req := &DrawRequest{PoolSlug: pool.Slug, PullCount: 1, PayWith: PayWithDiamond}
	_, err := runDraw(ctx, service, user, pool, req, 0, models.RaritySuperRare, 100)
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}

	diamonds, err := datastore.GetDiamonds(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("get diamonds: %v", err)
	}
	if diamonds != 500 {
		t.Fatalf("debit not rolled back: %d", diamonds)
	}

	entries, err := datastore.GetLedgerEntries(ctx, db, user.ID, 10, 0)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no ledger entries, got %d", len(entries))
	}

	state, err := datastore.GetGuaranteeState(ctx, db, user.ID, pool.Slug)
	if err != nil && err != sql.ErrNoRows {
		t.Fatalf("guarantee state: %v", err)
	}
	if err == nil && state.Counter != 0 {
		t.Fatalf("pity counter changed on failed draw: %d", state.Counter)
	}

	records, err := datastore.GetPullRecords(ctx, db, user.ID, 10, 0)
	if err != nil {
		t.Fatalf("pull records: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no pull records, got %d", len(records))
	}
}

func TestDrawNeverOverdrawsStock(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()
	service := newStoreDrawService(db)

	user := storeUser(t, db, 103)
	stock := 1
	card := &models.Prize{Name: "Signed Card", Rarity: models.RarityUltraRare, Weight: 500, Stock: &stock}
	pool := seedPool(t, db, "pool-stock",
		card,
		&models.Prize{Name: "Sticker", Rarity: models.RarityCommon, Weight: 500},
	)
	fundDiamonds(t, db, user.ID, 2000)

	req := &DrawRequest{PoolSlug: pool.Slug, PullCount: 1, PayWith: PayWithDiamond}
	for i := 0; i < 20; i++ {
		if _, err := runDraw(ctx, service, user, pool, req, 0, models.RaritySuperRare, 100); err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
	}

	prizes, err := datastore.FindPrizesByIDs(ctx, db, []int64{card.ID})
	if err != nil {
		t.Fatalf("find prize: %v", err)
	}
	if len(prizes) != 1 || prizes[0].Stock == nil || *prizes[0].Stock < 0 {
		t.Fatalf("stock went negative: %+v", prizes)
	}

	won, err := datastore.GetUserPrizeEntries(ctx, db, user.ID, 100, 0)
	if err != nil {
		t.Fatalf("user prizes: %v", err)
	}
	cardAwards := 0
	for _, entry := range won {
		if entry.PrizeID == card.ID {
			cardAwards++
		}
	}
	if cardAwards > 1 {
		t.Fatalf("limited prize awarded %d times with stock 1", cardAwards)
	}
	if len(won) != 20 {
		t.Fatalf("expected 20 awards, got %d", len(won))
	}
}

func TestDrawForcesFloorAtThreshold(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()
	service := newStoreDrawService(db)

	user := storeUser(t, db, 104)
	pool := seedPool(t, db, "pool-pity",
		&models.Prize{Name: "Sticker", Rarity: models.RarityCommon, Weight: 1000000},
		&models.Prize{Name: "Figurine", Rarity: models.RaritySuperRare, Weight: 1},
	)
	fundDiamonds(t, db, user.ID, 1000)

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		state, err := datastore.GetGuaranteeStateForUpdate(ctx, tx, user.ID, pool.Slug)
		if err != nil {
			return err
		}
		state.Counter = DEFAULT_GUARANTEE_THRESHOLD
		return datastore.UpdateGuaranteeCounter(ctx, tx, state)
	})
	if err != nil {
		t.Fatalf("preset counter: %v", err)
	}

	req := &DrawRequest{PoolSlug: pool.Slug, PullCount: 1, PayWith: PayWithDiamond}
	outcome, err := runDraw(ctx, service, user, pool, req, DEFAULT_GUARANTEE_THRESHOLD, models.RaritySuperRare, 100)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}

	if len(outcome.awarded) != 1 || outcome.awarded[0].Rarity < models.RaritySuperRare {
		t.Fatalf("expected a result at or above the floor, got %+v", outcome.awarded)
	}
	if !outcome.guaranteeTriggered {
		t.Fatal("expected the guarantee to be recorded as triggered")
	}

	state, err := datastore.GetGuaranteeState(ctx, db, user.ID, pool.Slug)
	if err != nil {
		t.Fatalf("guarantee state: %v", err)
	}
	if state.Counter != 0 {
		t.Fatalf("counter not reset after floor hit: %d", state.Counter)
	}

	records, err := datastore.GetPullRecords(ctx, db, user.ID, 10, 0)
	if err != nil {
		t.Fatalf("pull records: %v", err)
	}
	if len(records) != 1 || !records[0].GuaranteeTriggered {
		t.Fatalf("expected one pull record with the guarantee flagged, got %+v", records)
	}
}
