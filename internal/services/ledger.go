package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"maffix/internal/datastore"
	"maffix/internal/models"

	"github.com/go-redsync/redsync/v4"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

// ServiceLedger owns every diamond and ticket mutation. Each one runs in a
// transaction and appends a LedgerEntry, so a balance never changes without
// an explanation on record.
type ServiceLedger struct {
	container  *do.Injector
	postgresDB *bun.DB
	rs         *redsync.Redsync
}

func NewServiceLedger(container *do.Injector) (*ServiceLedger, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	return &ServiceLedger{container, postgresDB, rs}, nil
}

func (service *ServiceLedger) BalanceSummary(ctx context.Context, userID int64) (*models.BalanceSummary, error) {
	return service.balanceSummary(ctx, service.postgresDB, userID)
}

func (service *ServiceLedger) balanceSummary(ctx context.Context, db bun.IDB, userID int64) (*models.BalanceSummary, error) {
	diamonds, err := datastore.GetDiamonds(ctx, db, userID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now()
	tickets := map[string]int{}
	for _, kind := range []string{models.TicketKindSingle, models.TicketKindMulti10} {
		count, err := datastore.CountEligibleTickets(ctx, db, userID, kind, now)
		if err != nil {
			return nil, err
		}
		tickets[kind] = count
	}

	return &models.BalanceSummary{
		Diamonds:      diamonds,
		TicketsByKind: tickets,
	}, nil
}

// CreditDiamonds is the external grant entry point (mission approvals,
// purchase completions). Amount validation is the caller's job per the
// ledger contract; the grantor computes the amount.
func (service *ServiceLedger) CreditDiamonds(ctx context.Context, userID int64, amount int64, source string) (*models.BalanceSummary, error) {
	mutex := service.rs.NewMutex(LockKeyUserGrant(userID))
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrPersistenceConflict, errorx.Service)
	}
	// nolint:errcheck
	defer mutex.Unlock()

	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := datastore.GetOrCreateBalance(ctx, tx, userID); err != nil {
			return err
		}
		if err := datastore.CreditDiamonds(ctx, tx, userID, amount); err != nil {
			return err
		}
		diamonds, err := datastore.GetDiamonds(ctx, tx, userID)
		if err != nil {
			return err
		}
		return datastore.InsertLedgerEntry(ctx, tx, &models.LedgerEntry{
			UserID:       userID,
			Kind:         models.CurrencyDiamond,
			Amount:       amount,
			Source:       source,
			BalanceAfter: diamonds,
			CreatedAt:    time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	return service.BalanceSummary(ctx, userID)
}

// GrantTickets deposits discrete ticket instances (mission rewards, purchase
// bonuses). Tickets are append-only; expiry is optional.
func (service *ServiceLedger) GrantTickets(ctx context.Context, userID int64, kind string, count int, source string, expiresAt *time.Time) (*models.BalanceSummary, error) {
	if count <= 0 {
		return nil, errorx.Wrap(ErrInvalidRequest, errorx.Validation)
	}
	if kind != models.TicketKindSingle && kind != models.TicketKindMulti10 {
		return nil, errorx.Wrap(ErrInvalidRequest, errorx.Validation)
	}

	now := time.Now()
	tickets := make([]*models.Ticket, 0, count)
	for i := 0; i < count; i++ {
		tickets = append(tickets, &models.Ticket{
			UserID:    userID,
			Kind:      kind,
			Source:    source,
			ExpiresAt: expiresAt,
			CreatedAt: now,
		})
	}

	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := datastore.GetOrCreateBalance(ctx, tx, userID); err != nil {
			return err
		}
		if err := datastore.InsertTickets(ctx, tx, tickets); err != nil {
			return err
		}
		eligible, err := datastore.CountEligibleTickets(ctx, tx, userID, kind, now)
		if err != nil {
			return err
		}
		return datastore.InsertLedgerEntry(ctx, tx, &models.LedgerEntry{
			UserID:       userID,
			Kind:         models.CurrencyTicket + ":" + kind,
			Amount:       int64(count),
			Source:       source,
			BalanceAfter: int64(eligible),
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	return service.BalanceSummary(ctx, userID)
}

// Grant is the combined deposit entry point for collaborator services. A
// request may carry diamonds, tickets or both; an empty request is rejected.
func (service *ServiceLedger) Grant(ctx context.Context, userID int64, diamonds int64, ticketKind string, tickets int, source string, expiresAt *time.Time) (*models.BalanceSummary, error) {
	if userID <= 0 {
		return nil, errorx.Wrap(ErrInvalidRequest, errorx.Validation)
	}
	if diamonds < 0 || tickets < 0 || (diamonds == 0 && tickets == 0) {
		return nil, errorx.Wrap(ErrInvalidRequest, errorx.Validation)
	}

	var summary *models.BalanceSummary
	var err error
	if diamonds > 0 {
		summary, err = service.CreditDiamonds(ctx, userID, diamonds, source)
		if err != nil {
			return nil, err
		}
	}
	if tickets > 0 {
		summary, err = service.GrantTickets(ctx, userID, ticketKind, tickets, source, expiresAt)
		if err != nil {
			return nil, err
		}
	}

	return summary, nil
}

func (service *ServiceLedger) GetLedgerEntries(ctx context.Context, userID int64, limit, offset int) ([]*models.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return datastore.GetLedgerEntries(ctx, service.postgresDB, userID, limit, offset)
}

// DebitDiamondsTx pays for a draw inside the caller's transaction. The
// balance row is locked first so concurrent debits cannot both pass the
// funds check.
func (service *ServiceLedger) DebitDiamondsTx(ctx context.Context, tx bun.IDB, userID int64, amount int64, source string) error {
	balance, err := datastore.GetBalanceForUpdate(ctx, tx, userID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: have 0, need %d", ErrInsufficientFunds, amount)
	}
	if err != nil {
		return err
	}

	if balance.Diamonds < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, balance.Diamonds, amount)
	}

	ok, err := datastore.DebitDiamonds(ctx, tx, userID, amount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientFunds
	}

	return datastore.InsertLedgerEntry(ctx, tx, &models.LedgerEntry{
		UserID:       userID,
		Kind:         models.CurrencyDiamond,
		Amount:       -amount,
		Source:       source,
		BalanceAfter: balance.Diamonds - amount,
		CreatedAt:    time.Now(),
	})
}

// ResolveTicketPlan decides which ticket kind pays for a pull count given
// the user's eligible counts: a single pull takes one SINGLE; a 10-pull
// takes one MULTI_10X when available, else ten SINGLEs.
func ResolveTicketPlan(eligible map[string]int, pullCount int) (string, int, error) {
	switch pullCount {
	case PULL_COUNT_SINGLE:
		if eligible[models.TicketKindSingle] >= 1 {
			return models.TicketKindSingle, 1, nil
		}
	case PULL_COUNT_MULTI:
		if eligible[models.TicketKindMulti10] >= 1 {
			return models.TicketKindMulti10, 1, nil
		}
		if eligible[models.TicketKindSingle] >= PULL_COUNT_MULTI {
			return models.TicketKindSingle, PULL_COUNT_MULTI, nil
		}
	default:
		return "", 0, ErrInvalidRequest
	}

	return "", 0, ErrNoEligibleTicket
}

// DebitTicketsTx consumes tickets for a draw inside the caller's
// transaction: oldest eligible first, each marked used exactly once.
func (service *ServiceLedger) DebitTicketsTx(ctx context.Context, tx bun.IDB, userID int64, pullCount int, usedFor string) (string, int, error) {
	now := time.Now()

	eligible := map[string]int{}
	for _, kind := range []string{models.TicketKindSingle, models.TicketKindMulti10} {
		count, err := datastore.CountEligibleTickets(ctx, tx, userID, kind, now)
		if err != nil {
			return "", 0, err
		}
		eligible[kind] = count
	}

	kind, need, err := ResolveTicketPlan(eligible, pullCount)
	if err != nil {
		return "", 0, err
	}

	tickets, err := datastore.GetEligibleTicketsForUpdate(ctx, tx, userID, kind, need, now)
	if err != nil {
		return "", 0, err
	}
	if len(tickets) < need {
		return "", 0, ErrNoEligibleTicket
	}

	for _, ticket := range tickets {
		ok, err := datastore.MarkTicketUsed(ctx, tx, ticket.ID, usedFor, now)
		if err != nil {
			return "", 0, err
		}
		if !ok {
			// raced with another spend of the same ticket
			return "", 0, ErrNoEligibleTicket
		}
	}

	err = datastore.InsertLedgerEntry(ctx, tx, &models.LedgerEntry{
		UserID:       userID,
		Kind:         models.CurrencyTicket + ":" + kind,
		Amount:       int64(-need),
		Source:       usedFor,
		BalanceAfter: int64(eligible[kind] - need),
		CreatedAt:    now,
	})
	if err != nil {
		return "", 0, err
	}

	return kind, need, nil
}

// SweepExpiredTickets settles overdue unused tickets into the ledger so the
// audit trail explains why they stopped counting. Called by the cron binary.
func (service *ServiceLedger) SweepExpiredTickets(ctx context.Context, batchSize int) (int, error) {
	now := time.Now()
	swept := 0

	err := service.postgresDB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		tickets, err := datastore.GetExpiredUnusedTickets(ctx, tx, now, batchSize)
		if err != nil {
			return err
		}

		for _, ticket := range tickets {
			ok, err := datastore.MarkTicketExpired(ctx, tx, ticket.ID, now)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}

			remaining, err := datastore.CountEligibleTickets(ctx, tx, ticket.UserID, ticket.Kind, now)
			if err != nil {
				return err
			}

			err = datastore.InsertLedgerEntry(ctx, tx, &models.LedgerEntry{
				UserID:       ticket.UserID,
				Kind:         models.CurrencyTicket + ":" + ticket.Kind,
				Amount:       -1,
				Source:       "expired",
				BalanceAfter: int64(remaining),
				CreatedAt:    now,
			})
			if err != nil {
				return err
			}
			swept++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	if swept > 0 {
		log.Println("swept expired tickets:", swept)
	}

	return swept, nil
}
