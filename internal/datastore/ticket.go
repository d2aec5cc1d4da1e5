package datastore

import (
	"context"
	"maffix/internal/models"
	"time"

	"github.com/uptrace/bun"
)

func CreateTableTicket(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Ticket)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Ticket)(nil)).Index("index_ticket_user_id_kind_used").IfNotExists().Column("user_id", "kind", "used").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertTickets(ctx context.Context, db bun.IDB, tickets []*models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	_, err := db.NewInsert().Model(&tickets).Exec(ctx)
	return err
}

// GetEligibleTicketsForUpdate loads the oldest unused, unexpired tickets of
// one kind, locking them so a concurrent draw cannot spend the same ticket.
func GetEligibleTicketsForUpdate(ctx context.Context, db bun.IDB, userID int64, kind string, limit int, now time.Time) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	err := db.NewSelect().Model(&tickets).
		Where("user_id = ?", userID).
		Where("kind = ?", kind).
		Where("used = false").
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at", "id").
		Limit(limit).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return tickets, nil
}

// MarkTicketUsed consumes a ticket exactly once; the used-flag guard makes a
// second spend of the same row report false instead of double-charging.
func MarkTicketUsed(ctx context.Context, db bun.IDB, ticketID int64, usedFor string, now time.Time) (bool, error) {
	res, err := db.NewUpdate().Model((*models.Ticket)(nil)).
		Set("used = true").
		Set("used_at = ?", now).
		Set("used_for = ?", usedFor).
		Where("id = ?", ticketID).
		Where("used = false").
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

func CountEligibleTickets(ctx context.Context, db bun.IDB, userID int64, kind string, now time.Time) (int, error) {
	return db.NewSelect().Model((*models.Ticket)(nil)).
		Where("user_id = ?", userID).
		Where("kind = ?", kind).
		Where("used = false").
		Where("expires_at IS NULL OR expires_at > ?", now).
		Count(ctx)
}

// GetExpiredUnusedTickets feeds the cron sweep: unused tickets past their
// expiry that have not been swept into the ledger yet.
func GetExpiredUnusedTickets(ctx context.Context, db bun.IDB, before time.Time, limit int) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	err := db.NewSelect().Model(&tickets).
		Where("used = false").
		Where("expires_at IS NOT NULL").
		Where("expires_at <= ?", before).
		Where("used_for = ''").
		Order("expires_at").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return tickets, nil
}

func MarkTicketExpired(ctx context.Context, db bun.IDB, ticketID int64, now time.Time) (bool, error) {
	res, err := db.NewUpdate().Model((*models.Ticket)(nil)).
		Set("used_for = ?", "expired").
		Set("used_at = ?", now).
		Where("id = ?", ticketID).
		Where("used = false").
		Where("used_for = ''").
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
