package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestBindDrawRequestPoolFromRoute(t *testing.T) {
	e := echo.New()
	body := `{"pool_slug":"other-pool","pull_count":10,"pay_with":"ticket"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("pool")
	c.SetParamValues("launch-event")

	payload, err := bindDrawRequest(c)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if payload.PoolSlug != "launch-event" {
		t.Fatalf("expected pool from route, got %q", payload.PoolSlug)
	}
	if payload.PullCount != 10 || payload.PayWith != "ticket" {
		t.Fatalf("body fields lost: %+v", payload)
	}
}

func TestBindDrawRequestEmptyBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("pool")
	c.SetParamValues("launch-event")

	payload, err := bindDrawRequest(c)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if payload.PoolSlug != "launch-event" {
		t.Fatalf("expected pool from route, got %q", payload.PoolSlug)
	}
}
