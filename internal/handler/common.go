package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/desk-allocation/internal/allocation"
)

// getUserID extracts the authenticated account id stored in context by
// the JWT middleware.  The sub claim round-trips through JSON, so it
// arrives as a float64; string and integer forms are tolerated too.
func getUserID(c echo.Context) (uint64, error) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), nil
	case uint64:
		return v, nil
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("no authenticated user")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// engineError maps the allocation engine's failure taxonomy onto HTTP
// responses.  Anything outside the taxonomy is a store/transport
// failure and becomes a 500 without leaking internals.
func engineError(c echo.Context, err error) error {
	kind := allocation.KindOf(err)
	var status int
	switch kind {
	case allocation.KindNotFound:
		status = http.StatusNotFound
	case allocation.KindIneligible:
		status = http.StatusUnprocessableEntity
	case allocation.KindConflict:
		status = http.StatusConflict
	case allocation.KindNoSuitableDesk:
		status = http.StatusNotFound
	case allocation.KindInvalidQuery:
		status = http.StatusBadRequest
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	var ae *allocation.Error
	errors.As(err, &ae)
	return c.JSON(status, echo.Map{"error": ae.Kind.String(), "reason": ae.Reason})
}
