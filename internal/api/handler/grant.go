package handler

import (
	"time"

	"maffix/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupGrant struct {
	container *do.Injector
}

type GrantPayload struct {
	UserID     int64      `json:"user_id"`
	Diamonds   int64      `json:"diamonds"`
	TicketKind string     `json:"ticket_kind"`
	Tickets    int        `json:"tickets"`
	ExpiresAt  *time.Time `json:"expires_at"`
	Reference  string     `json:"reference"`
}

// Grant deposits diamonds and/or draw tickets into a user's account on
// behalf of an authenticated collaborator service.
func (gr *groupGrant) Grant(c echo.Context) error {
	serviceLedger, err := do.Invoke[*services.ServiceLedger](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	grantor, err := ResolveValidGrantor(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload GrantPayload
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	source := grantor.Slug
	if payload.Reference != "" {
		source = grantor.Slug + ":" + payload.Reference
	}

	summary, err := serviceLedger.Grant(ctx, payload.UserID, payload.Diamonds, payload.TicketKind, payload.Tickets, source, payload.ExpiresAt)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, summary, nil)
}
