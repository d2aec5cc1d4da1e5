package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"maffix/internal/datastore"
	"maffix/internal/models"

	"github.com/uptrace/bun"
)

func TestDebitTicketsConcurrentSingleTicket(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()
	serviceLedger := &ServiceLedger{postgresDB: db}

	user := storeUser(t, db, 105)
	err := datastore.InsertTickets(ctx, db, []*models.Ticket{
		{UserID: user.ID, Kind: models.TicketKindSingle, Source: "mission", CreatedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("insert ticket: %v", err)
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				_, _, err := serviceLedger.DebitTicketsTx(ctx, tx, user.ID, 1, "draw:test")
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)

	spent, refused := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			spent++
		case errors.Is(err, ErrNoEligibleTicket):
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if spent != 1 || refused != 1 {
		t.Fatalf("one ticket paid for %d draws (%d refused)", spent, refused)
	}

	remaining, err := datastore.CountEligibleTickets(ctx, db, user.ID, models.TicketKindSingle, time.Now())
	if err != nil {
		t.Fatalf("count tickets: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected no eligible tickets left, got %d", remaining)
	}

	entries, err := datastore.GetLedgerEntries(ctx, db, user.ID, 10, 0)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(entries))
	}
	if entries[0].Kind != models.CurrencyTicket+":"+models.TicketKindSingle || entries[0].Amount != -1 || entries[0].BalanceAfter != 0 {
		t.Fatalf("unexpected ledger entry: %+v", entries[0])
	}
}

func TestTicketLedgerRecordsRemainingCount(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()
	serviceLedger := &ServiceLedger{postgresDB: db}

	user := storeUser(t, db, 106)
	summary, err := serviceLedger.GrantTickets(ctx, user.ID, models.TicketKindSingle, 3, "mission", nil)
	if err != nil {
		t.Fatalf("grant tickets: %v", err)
	}
	if summary.TicketsByKind[models.TicketKindSingle] != 3 {
		t.Fatalf("expected 3 tickets, got %+v", summary.TicketsByKind)
	}

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, _, err := serviceLedger.DebitTicketsTx(ctx, tx, user.ID, 1, "draw:test")
		return err
	})
	if err != nil {
		t.Fatalf("debit ticket: %v", err)
	}

	entries, err := datastore.GetLedgerEntries(ctx, db, user.ID, 10, 0)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected two ledger entries, got %d", len(entries))
	}
	for _, entry := range entries {
		switch entry.Amount {
		case 3:
			if entry.BalanceAfter != 3 {
				t.Fatalf("grant entry balance_after = %d, want 3", entry.BalanceAfter)
			}
		case -1:
			if entry.BalanceAfter != 2 {
				t.Fatalf("debit entry balance_after = %d, want 2", entry.BalanceAfter)
			}
		default:
			t.Fatalf("unexpected ledger entry: %+v", entry)
		}
	}
}

func TestSweepLedgerRecordsRemainingCount(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()
	serviceLedger := &ServiceLedger{postgresDB: db}

	user := storeUser(t, db, 107)
	past := time.Now().Add(-time.Hour)
	err := datastore.InsertTickets(ctx, db, []*models.Ticket{
		{UserID: user.ID, Kind: models.TicketKindSingle, Source: "mission", ExpiresAt: &past, CreatedAt: past},
		{UserID: user.ID, Kind: models.TicketKindSingle, Source: "mission", CreatedAt: past},
	})
	if err != nil {
		t.Fatalf("insert tickets: %v", err)
	}

	swept, err := serviceLedger.SweepExpiredTickets(ctx, 10)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept ticket, got %d", swept)
	}

	entries, err := datastore.GetLedgerEntries(ctx, db, user.ID, 10, 0)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(entries))
	}
	if entries[0].Amount != -1 || entries[0].BalanceAfter != 1 {
		t.Fatalf("sweep entry = %+v, want amount -1 and balance_after 1", entries[0])
	}
}
