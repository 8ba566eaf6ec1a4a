package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antiapp/cafe-focus-rewards/internal/model"
)

func newTestContext() echo.Context {
	e := echo.New()
	req := httptest.NewRequest("GET", "/", nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestGetUserIDClaimShapes(t *testing.T) {
	c := newTestContext()
	// Numeric claims decode as float64.
	c.Set("user_id", float64(42))
	id, err := getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	c.Set("user_id", "17")
	id, err = getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(17), id)

	for _, v := range []interface{}{nil, "abc", "0", float64(0), true} {
		c.Set("user_id", v)
		_, err := getUserID(c)
		assert.Error(t, err, "%v", v)
	}
}

func TestToPublicCafeSplitsAmenities(t *testing.T) {
	rate := 6.0
	card := toPublicCafe(model.Cafe{
		ID:          3,
		Name:        "Deep Work Roasters",
		Amenities:   "wifi, power,quiet ,",
		UsdcPerHour: &rate,
	})
	assert.Equal(t, []string{"wifi", "power", "quiet"}, card.Amenities)
	require.NotNil(t, card.UsdcPerHour)
	assert.Equal(t, 6.0, *card.UsdcPerHour)

	empty := toPublicCafe(model.Cafe{ID: 4, Name: "Bare"})
	assert.Empty(t, empty.Amenities)
	assert.Nil(t, empty.UsdcPerHour)
}
