package params

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type QueryParams struct {
	PageNumber int
	PageSize   int
}

func NewQueryParams(c echo.Context) *QueryParams {
	q := &QueryParams{PageNumber: 1, PageSize: DefaultPageSize}
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		q.PageNumber = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		q.PageSize = min(v, MaxPageSize)
	}
	return q
}

func (q QueryParams) Offset() int {
	return (q.PageNumber - 1) * q.PageSize
}
