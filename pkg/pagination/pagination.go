// Package pagination reads limit/offset query parameters and renders a page
// of results under a resource-named key.
package pagination

import (
	"encoding/json"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit and ?offset. Missing or malformed values fall back
// to DefaultLimit and 0; limit is capped at MaxLimit.
func FromContext(c echo.Context) Params {
	p := Params{Limit: DefaultLimit}
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		p.Limit = min(n, MaxLimit)
	}
	if n, err := strconv.Atoi(c.QueryParam("offset")); err == nil && n > 0 {
		p.Offset = n
	}
	return p
}

// HasNext reports whether rows remain past this page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// Page is one page of items. It renders as
// {"<key>": [...], "total": n, "limit": n, "offset": n, "hasMore": bool}.
type Page[T any] struct {
	Key    string
	Items  []T
	Total  int
	Params Params
}

func NewPage[T any](key string, items []T, total int, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Key: key, Items: items, Total: total, Params: p}
}

func (pg Page[T]) MarshalJSON() ([]byte, error) {
	key := pg.Key
	if key == "" {
		key = "items"
	}
	return json.Marshal(map[string]any{
		key:       pg.Items,
		"total":   pg.Total,
		"limit":   pg.Params.Limit,
		"offset":  pg.Params.Offset,
		"hasMore": pg.Params.HasNext(pg.Total),
	})
}
