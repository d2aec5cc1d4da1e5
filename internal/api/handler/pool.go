package handler

import (
	"maffix/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupPool struct {
	container *do.Injector
}

func (gr *groupPool) GetPools(c echo.Context) error {
	servicePool, err := do.Invoke[*services.ServicePool](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	pools, err := servicePool.GetActivePools(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, pools, nil)
}

func (gr *groupPool) GetPoolChances(c echo.Context) error {
	servicePool, err := do.Invoke[*services.ServicePool](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	chances, err := servicePool.PoolChances(ctx, c.Param("pool"))
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, chances, nil)
}
