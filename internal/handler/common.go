// Package handler contains the HTTP endpoints of the parking API.  Handlers
// bind request DTOs, enforce domain rules, call repositories and render the
// shared response envelope.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/logger"
	"github.com/parkgrid/parkgrid-api/internal/middleware"
	"github.com/parkgrid/parkgrid-api/internal/repository"
)

const dbTimeout = 5 * time.Second

// reqCtx derives a bounded context for repository calls.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// ok renders the success envelope.
func ok(c echo.Context, status int, data any, message string) error {
	body := echo.Map{"success": true}
	if data != nil {
		body["data"] = data
	}
	if message != "" {
		body["message"] = message
	}
	return c.JSON(status, body)
}

// fail renders the error envelope.
func fail(c echo.Context, status int, message string, details ...string) error {
	errs := details
	if errs == nil {
		errs = []string{}
	}
	return c.JSON(status, echo.Map{
		"success": false,
		"message": message,
		"errors":  errs,
	})
}

// pageMeta is the pagination block included in list responses.
type pageMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func newPageMeta(page, limit, total int) pageMeta {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return pageMeta{Page: page, Limit: limit, Total: total, Pages: pages}
}

// pageParams reads ?page= and ?limit= with sane defaults.
func pageParams(c echo.Context) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit, (page - 1) * limit
}

// pathID parses a numeric :id style path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// normalizePlate canonicalizes a plate number once at the HTTP boundary so
// the database only ever sees one spelling.
func normalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// tenantOf returns the tenant resolved by the middleware; routes using it are
// always registered behind ResolveTenant.
func tenantOf(c echo.Context) repository.Tenant {
	t, _ := middleware.CurrentTenant(c)
	return t
}

// identityOf returns the authenticated identity set by JWTAuth.
func identityOf(c echo.Context) middleware.Identity {
	id, _ := middleware.CurrentIdentity(c)
	return id
}

// HTTPErrorHandler renders unhandled errors in the shared envelope so even
// Echo-internal failures (404 route misses, body size limits) look uniform.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := "internal server error"
	if he, okCast := err.(*echo.HTTPError); okCast {
		status = he.Code
		if m, okMsg := he.Message.(string); okMsg {
			msg = m
		}
	}
	if status >= http.StatusInternalServerError {
		logger.S().Errorw("unhandled error",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"err", err)
	}
	_ = fail(c, status, msg)
}
