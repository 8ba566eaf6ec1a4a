package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// parseID parses a positive decimal identifier.
func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// getUserID extracts the authenticated user's ID from the Echo
// context.  JWTAuth stores the raw `sub` claim, which the JWT
// library decodes as float64 for numeric claims and string for
// string claims; both are accepted here.
func getUserID(c echo.Context) (uint64, error) {
	switch v := c.Get("user_id").(type) {
	case float64:
		if v <= 0 {
			return 0, errors.New("invalid user id")
		}
		return uint64(v), nil
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return 0, errors.New("invalid user id")
		}
		return id, nil
	default:
		return 0, errors.New("missing user id")
	}
}
