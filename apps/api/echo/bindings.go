package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	orderingParam = "ordering"
	errBadBody    = core.NewValidationError(errors.New("invalid request body"))
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindBody binds the request body to dst. Malformed bodies are client errors.
func bindBody(ctx echo.Context, dst interface{}) error {
	if err := ctx.Bind(dst); err != nil {
		if _, ok := err.(*echo.HTTPError); ok {
			return errBadBody
		}
		return err
	}
	return nil
}

// bindQuery binds the query string to a filter. A filter that cannot be bound matches nothing.
func bindQuery(ctx echo.Context, filter interface{}) bool {
	return ctx.Bind(filter) == nil
}
