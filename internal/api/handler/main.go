package handler

import (
	"net/http"

	"maffix/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"
)

type Config struct {
	Container *do.Injector
	Mode      string
	Origins   []string
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "💎")
	})

	routesAPIv1 := r.Group("/api/v1")
	{
		authentication, err := do.Invoke[*services.Authentication](cfg.Container)
		if err != nil {
			return nil, err
		}
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Origins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowCredentials: true,
			MaxAge:           60 * 60,
		})

		routesAPIv1.Use(cors)
		routesAPIv1.Use(Authn(authentication)) // Authn will NOT terminate unauthenticated requests.

		p := groupPool{cfg.Container}
		routesAPIv1.GET("/gacha/pools", p.GetPools)
		routesAPIv1.GET("/gacha/pool/:pool", p.GetPoolChances)

		d := groupDraw{cfg.Container}
		routesAPIv1.GET("/gacha/pool/:pool/recent-wins", d.RecentWins)
		routesAPIv1.GET("/gacha/pool/:pool/pity", d.GuaranteeProgress)
		routesAPIv1.POST("/gacha/pool/:pool/draw", d.Draw)

		routesAPIv1User := routesAPIv1.Group("/user")
		{
			b := groupBalance{cfg.Container}
			routesAPIv1User.GET("/balance", b.GetBalance)
			routesAPIv1User.GET("/ledger", b.GetLedger)

			routesAPIv1User.GET("/pulls", d.GetPullHistory)

			i := groupInventory{cfg.Container}
			routesAPIv1User.GET("/prizes", i.GetPrizes)
			routesAPIv1User.POST("/prizes/:id/redeem", i.Redeem)
		}

		routesAPIv1Grant := routesAPIv1.Group("/3rd")
		{
			grantor, err := do.Invoke[*services.ServiceGrantor](cfg.Container)
			if err != nil {
				return nil, err
			}

			routesAPIv1Grant.Use(AuthnGrantor(grantor))
			g := groupGrant{cfg.Container}
			routesAPIv1Grant.POST("/grant", g.Grant)
		}
	}

	return r, nil
}
