package handler

import (
	"strconv"

	"maffix/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupDraw struct {
	container *do.Injector
}

func pagination(c echo.Context) (limit int, offset int) {
	limit = 20
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, _ = strconv.Atoi(limitStr)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 0 {
		page = 0
	}

	return limit, page * limit
}

// bindDrawRequest decodes the body and then pins the pool to the route
// segment, so a pool_slug in the body can never redirect the draw.
func bindDrawRequest(c echo.Context) (*services.DrawRequest, error) {
	var payload services.DrawRequest
	if err := c.Bind(&payload); err != nil {
		return nil, err
	}
	payload.PoolSlug = c.Param("pool")
	return &payload, nil
}

func (gr *groupDraw) Draw(c echo.Context) error {
	serviceDraw, err := do.Invoke[*services.ServiceDraw](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	payload, err := bindDrawRequest(c)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	result, err := serviceDraw.Draw(ctx, user, payload)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, result, nil)
}

func (gr *groupDraw) GetPullHistory(c echo.Context) error {
	serviceDraw, err := do.Invoke[*services.ServiceDraw](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	limit, offset := pagination(c)
	records, err := serviceDraw.GetPullHistory(ctx, user.ID, limit, offset)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, records, nil)
}

func (gr *groupDraw) GuaranteeProgress(c echo.Context) error {
	serviceDraw, err := do.Invoke[*services.ServiceDraw](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	progress, err := serviceDraw.GuaranteeProgress(ctx, user.ID, c.Param("pool"))
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, progress, nil)
}

func (gr *groupDraw) RecentWins(c echo.Context) error {
	serviceDraw, err := do.Invoke[*services.ServiceDraw](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	limit, _ := pagination(c)
	wins, err := serviceDraw.RecentWins(ctx, c.Param("pool"), limit)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, wins, nil)
}
