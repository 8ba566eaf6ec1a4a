package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/antiapp/cafe-focus-rewards/internal/model"
	"github.com/antiapp/cafe-focus-rewards/internal/repository"
	"github.com/antiapp/cafe-focus-rewards/internal/utils"
)

// MerchantHandler serves the merchant console: café listing CRUD,
// printable check-in/check-out QR codes, and the settlement history
// across the merchant's cafés.
type MerchantHandler struct {
	CafeRepo    *repository.CafeRepo
	SessionRepo *repository.SessionRepo
}

// NewMerchantHandler constructs a MerchantHandler.
func NewMerchantHandler(cafeRepo *repository.CafeRepo, sessionRepo *repository.SessionRepo) *MerchantHandler {
	if cafeRepo == nil || sessionRepo == nil {
		panic("nil repository passed to NewMerchantHandler")
	}
	return &MerchantHandler{CafeRepo: cafeRepo, SessionRepo: sessionRepo}
}

// cafeReq is the create/update body.  Amenities arrive as a list and
// are stored comma separated; usdc_per_hour may be omitted while the
// merchant is still onboarding (the café then cannot host sessions).
type cafeReq struct {
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Amenities   []string `json:"amenities"`
	UsdcPerHour *float64 `json:"usdc_per_hour"`
	IsActive    *bool    `json:"is_active"`
}

func (r *cafeReq) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	r.Location = strings.TrimSpace(r.Location)
	if r.Name == "" {
		return "name required"
	}
	if r.Location == "" {
		return "location required"
	}
	if r.UsdcPerHour != nil && *r.UsdcPerHour <= 0 {
		return "usdc_per_hour must be positive"
	}
	return ""
}

func (r *cafeReq) amenitiesCSV() string {
	tags := make([]string, 0, len(r.Amenities))
	for _, a := range r.Amenities {
		if a = strings.TrimSpace(a); a != "" {
			tags = append(tags, a)
		}
	}
	return strings.Join(tags, ",")
}

// merchantCafe is the owner's view of a listing, including the
// active flag the public card hides.
type merchantCafe struct {
	publicCafe
	IsActive bool `json:"is_active"`
}

func toMerchantCafe(c model.Cafe) merchantCafe {
	return merchantCafe{publicCafe: toPublicCafe(c), IsActive: c.IsActive}
}

// CreateCafe handles POST /v1/merchant/cafes.
func (h *MerchantHandler) CreateCafe(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req cafeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	cafe, err := h.CafeRepo.Create(c.Request().Context(), &model.Cafe{
		MerchantID:  merchantID,
		Name:        req.Name,
		Location:    req.Location,
		Description: strings.TrimSpace(req.Description),
		Amenities:   req.amenitiesCSV(),
		UsdcPerHour: req.UsdcPerHour,
		IsActive:    active,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create cafe failed"})
	}
	return c.JSON(http.StatusCreated, toMerchantCafe(*cafe))
}

// UpdateCafe handles PUT /v1/merchant/cafes/:id.
func (h *MerchantHandler) UpdateCafe(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cafe id"})
	}
	var req cafeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	cafe, err := h.CafeRepo.Update(c.Request().Context(), merchantID, &model.Cafe{
		ID:          id,
		Name:        req.Name,
		Location:    req.Location,
		Description: strings.TrimSpace(req.Description),
		Amenities:   req.amenitiesCSV(),
		UsdcPerHour: req.UsdcPerHour,
		IsActive:    active,
	})
	if err != nil {
		switch err {
		case repository.ErrCafeNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your cafe"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update cafe failed"})
		}
	}
	return c.JSON(http.StatusOK, toMerchantCafe(*cafe))
}

// cafePatchReq is the PATCH body.  Only fields present in the JSON
// change; omitted fields keep their stored values.  A null rate is
// treated as absent, so the rate cannot be cleared over PATCH (use
// PUT for that).
type cafePatchReq struct {
	Name        *string   `json:"name"`
	Location    *string   `json:"location"`
	Description *string   `json:"description"`
	Amenities   *[]string `json:"amenities"`
	UsdcPerHour *float64  `json:"usdc_per_hour"`
	IsActive    *bool     `json:"is_active"`
}

// apply merges the patch into the stored listing and returns a
// validation message, empty when the merged listing is valid.
func (r *cafePatchReq) apply(cafe *model.Cafe) string {
	if r.Name != nil {
		cafe.Name = strings.TrimSpace(*r.Name)
	}
	if r.Location != nil {
		cafe.Location = strings.TrimSpace(*r.Location)
	}
	if r.Description != nil {
		cafe.Description = strings.TrimSpace(*r.Description)
	}
	if r.Amenities != nil {
		full := cafeReq{Amenities: *r.Amenities}
		cafe.Amenities = full.amenitiesCSV()
	}
	if r.UsdcPerHour != nil {
		if *r.UsdcPerHour <= 0 {
			return "usdc_per_hour must be positive"
		}
		cafe.UsdcPerHour = r.UsdcPerHour
	}
	if r.IsActive != nil {
		cafe.IsActive = *r.IsActive
	}
	if cafe.Name == "" {
		return "name required"
	}
	if cafe.Location == "" {
		return "location required"
	}
	return ""
}

// PatchCafe handles PATCH /v1/merchant/cafes/:id: a partial update
// that loads the stored listing, merges the supplied fields, and
// writes the result back.
func (h *MerchantHandler) PatchCafe(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cafe id"})
	}
	var req cafePatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx := c.Request().Context()
	cafe, err := h.CafeRepo.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrCafeNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if cafe.MerchantID != merchantID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your cafe"})
	}
	if msg := req.apply(cafe); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	updated, err := h.CafeRepo.Update(ctx, merchantID, cafe)
	if err != nil {
		switch err {
		case repository.ErrCafeNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your cafe"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update cafe failed"})
		}
	}
	return c.JSON(http.StatusOK, toMerchantCafe(*updated))
}

// ListMyCafes handles GET /v1/merchant/cafes.
func (h *MerchantHandler) ListMyCafes(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	cafes, err := h.CafeRepo.ListByMerchant(c.Request().Context(), merchantID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]merchantCafe, 0, len(cafes))
	for _, cafe := range cafes {
		out = append(out, toMerchantCafe(cafe))
	}
	return c.JSON(http.StatusOK, echo.Map{"cafes": out})
}

// GetCafeQR handles GET /v1/merchant/cafes/:id/qr.  Returns the two
// payloads the café prints at the counter; ownership is checked so a
// merchant cannot mint codes for someone else's listing.
func (h *MerchantHandler) GetCafeQR(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cafe id"})
	}
	cafe, err := h.CafeRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrCafeNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if cafe.MerchantID != merchantID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your cafe"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"cafe_id":   cafe.ID,
		"check_in":  utils.BuildQR(utils.QRCheckIn, cafe.ID),
		"check_out": utils.BuildQR(utils.QRCheckOut, cafe.ID),
	})
}

// ListSessions handles GET /v1/merchant/sessions: the settlement
// history across all of the merchant's cafés, including commission
// figures captured at check-out.
func (h *MerchantHandler) ListSessions(c echo.Context) error {
	merchantID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessions, err := h.SessionRepo.ListByMerchant(c.Request().Context(), merchantID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": sessions})
}
