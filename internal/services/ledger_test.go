package services

import (
	"errors"
	"testing"
	"time"

	"maffix/internal/models"
)

func TestResolveTicketPlan(t *testing.T) {
	cases := []struct {
		name      string
		eligible  map[string]int
		pullCount int
		wantKind  string
		wantCount int
		wantErr   error
	}{
		{
			name:      "single pull with single ticket",
			eligible:  map[string]int{models.TicketKindSingle: 1},
			pullCount: 1,
			wantKind:  models.TicketKindSingle,
			wantCount: 1,
		},
		{
			name:      "single pull without tickets",
			eligible:  map[string]int{models.TicketKindMulti10: 5},
			pullCount: 1,
			wantErr:   ErrNoEligibleTicket,
		},
		{
			name:      "multi pull prefers the multi ticket",
			eligible:  map[string]int{models.TicketKindMulti10: 1, models.TicketKindSingle: 20},
			pullCount: 10,
			wantKind:  models.TicketKindMulti10,
			wantCount: 1,
		},
		{
			name:      "multi pull falls back to ten singles",
			eligible:  map[string]int{models.TicketKindSingle: 10},
			pullCount: 10,
			wantKind:  models.TicketKindSingle,
			wantCount: 10,
		},
		{
			name:      "multi pull with nine singles",
			eligible:  map[string]int{models.TicketKindSingle: 9},
			pullCount: 10,
			wantErr:   ErrNoEligibleTicket,
		},
		{
			name:      "unsupported pull count",
			eligible:  map[string]int{models.TicketKindSingle: 100},
			pullCount: 5,
			wantErr:   ErrInvalidRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, count, err := ResolveTicketPlan(tc.eligible, tc.pullCount)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if kind != tc.wantKind || count != tc.wantCount {
				t.Fatalf("want %s x%d, got %s x%d", tc.wantKind, tc.wantCount, kind, count)
			}
		})
	}
}

func TestTicketEligible(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	ticket := &models.Ticket{}
	if !ticket.Eligible(now) {
		t.Fatal("unused ticket with no expiry must be eligible")
	}

	ticket = &models.Ticket{ExpiresAt: &later}
	if !ticket.Eligible(now) {
		t.Fatal("unexpired ticket must be eligible")
	}

	ticket = &models.Ticket{ExpiresAt: &earlier}
	if ticket.Eligible(now) {
		t.Fatal("expired ticket must not be eligible")
	}

	ticket = &models.Ticket{Used: true}
	if ticket.Eligible(now) {
		t.Fatal("used ticket must not be eligible")
	}
}
