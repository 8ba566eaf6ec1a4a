package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antiapp/cafe-focus-rewards/internal/model"
	"github.com/antiapp/cafe-focus-rewards/internal/repository"
)

func strPtr(s string) *string    { return &s }
func ratePtr(f float64) *float64 { return &f }

func TestCafePatchKeepsOmittedFields(t *testing.T) {
	cafe := model.Cafe{
		ID: 3, MerchantID: 9,
		Name: "Deep Work", Location: "Berlin",
		Amenities: "wifi,power", UsdcPerHour: ratePtr(5), IsActive: true,
	}

	patch := cafePatchReq{UsdcPerHour: ratePtr(7)}
	require.Empty(t, patch.apply(&cafe))
	assert.Equal(t, "Deep Work", cafe.Name)
	assert.Equal(t, "Berlin", cafe.Location)
	assert.Equal(t, "wifi,power", cafe.Amenities)
	assert.Equal(t, 7.0, *cafe.UsdcPerHour)
	assert.True(t, cafe.IsActive)
}

func TestCafePatchValidation(t *testing.T) {
	cases := []struct {
		name  string
		patch cafePatchReq
		want  string
	}{
		{"empty patch is valid", cafePatchReq{}, ""},
		{"clearing name", cafePatchReq{Name: strPtr("  ")}, "name required"},
		{"clearing location", cafePatchReq{Location: strPtr("")}, "location required"},
		{"negative rate", cafePatchReq{UsdcPerHour: ratePtr(-1)}, "usdc_per_hour must be positive"},
		{"deactivate only", cafePatchReq{IsActive: boolPtr(false)}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cafe := model.Cafe{Name: "Deep Work", Location: "Berlin", IsActive: true}
			assert.Equal(t, tc.want, tc.patch.apply(&cafe))
		})
	}
}

func boolPtr(b bool) *bool { return &b }

func TestCafePatchAmenitiesJoined(t *testing.T) {
	cafe := model.Cafe{Name: "Deep Work", Location: "Berlin"}
	patch := cafePatchReq{Amenities: &[]string{" wifi ", "", "standing desks"}}
	require.Empty(t, patch.apply(&cafe))
	assert.Equal(t, "wifi,standing desks", cafe.Amenities)
}

// A PATCH body carrying only the rate must succeed against the stored
// listing instead of failing full-body validation.
func TestPatchCafePartialBody(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	cols := []string{"id", "merchant_id", "name", "location", "description",
		"amenities", "usdc_per_hour", "is_active", "created_at", "updated_at"}

	mock.ExpectQuery("SELECT (.+) FROM cafes WHERE id").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(uint64(3), uint64(9), "Deep Work", "Berlin", "", "wifi", 5.0, true, now, now))
	mock.ExpectQuery("SELECT merchant_id FROM cafes WHERE id").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"merchant_id"}).AddRow(uint64(9)))
	mock.ExpectExec("UPDATE cafes SET").
		WithArgs("Deep Work", "Berlin", "", "wifi", 7.0, true, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM cafes WHERE id").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(uint64(3), uint64(9), "Deep Work", "Berlin", "", "wifi", 7.0, true, now, now))

	h := NewMerchantHandler(repository.NewCafeRepo(db), repository.NewSessionRepo(db))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/v1/merchant/cafes/3",
		strings.NewReader(`{"usdc_per_hour": 7}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("3")
	c.Set("user_id", float64(9))

	require.NoError(t, h.PatchCafe(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"usdc_per_hour":7`)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A stranger's PATCH is rejected before anything is written.
func TestPatchCafeWrongOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	cols := []string{"id", "merchant_id", "name", "location", "description",
		"amenities", "usdc_per_hour", "is_active", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT (.+) FROM cafes WHERE id").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(uint64(3), uint64(9), "Deep Work", "Berlin", "", "wifi", 5.0, true, now, now))

	h := NewMerchantHandler(repository.NewCafeRepo(db), repository.NewSessionRepo(db))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/v1/merchant/cafes/3",
		strings.NewReader(`{"is_active": false}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("3")
	c.Set("user_id", float64(42))

	require.NoError(t, h.PatchCafe(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
