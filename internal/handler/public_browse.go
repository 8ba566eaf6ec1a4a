package handler

import (
	"net/http" // HTTP status codes
	"strconv"  // parsing path parameters
	"strings"  // splitting the amenities filter
	"time"     // formatting timestamps

	"github.com/labstack/echo/v4"

	"github.com/antiapp/cafe-focus-rewards/internal/model"
	"github.com/antiapp/cafe-focus-rewards/internal/repository"
)

// PublicHandler exposes unauthenticated browse endpoints: the café
// directory and the event catalog.  Responses carry only what the
// public cards need and sit behind the Redis response cache.
type PublicHandler struct {
	CafeRepo  *repository.CafeRepo
	EventRepo *repository.EventRepo
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(cafeRepo *repository.CafeRepo, eventRepo *repository.EventRepo) *PublicHandler {
	if cafeRepo == nil || eventRepo == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{CafeRepo: cafeRepo, EventRepo: eventRepo}
}

// publicCafe is the sanitized café card returned to guests.
type publicCafe struct {
	ID          uint64   `json:"id"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Amenities   []string `json:"amenities"`
	UsdcPerHour *float64 `json:"usdc_per_hour,omitempty"`
}

func toPublicCafe(c model.Cafe) publicCafe {
	amenities := []string{}
	for _, a := range strings.Split(c.Amenities, ",") {
		if a = strings.TrimSpace(a); a != "" {
			amenities = append(amenities, a)
		}
	}
	return publicCafe{
		ID:          c.ID,
		Name:        c.Name,
		Location:    c.Location,
		Description: c.Description,
		Amenities:   amenities,
		UsdcPerHour: c.UsdcPerHour,
	}
}

// GetPublicCafes handles GET /v1/cafes.  Optional query parameters:
// `q` matches name/location, `amenities` is a comma separated tag
// list a café must fully satisfy (e.g. ?amenities=wifi,power).
func (h *PublicHandler) GetPublicCafes(c echo.Context) error {
	var amenities []string
	if raw := c.QueryParam("amenities"); raw != "" {
		amenities = strings.Split(raw, ",")
	}
	cafes, err := h.CafeRepo.ListActive(c.Request().Context(), c.QueryParam("q"), amenities)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]publicCafe, 0, len(cafes))
	for _, cafe := range cafes {
		out = append(out, toPublicCafe(cafe))
	}
	return c.JSON(http.StatusOK, echo.Map{"cafes": out})
}

// GetPublicCafe handles GET /v1/cafes/:id.
func (h *PublicHandler) GetPublicCafe(c echo.Context) error {
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
	if !cafe.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "cafe not found"})
	}
	return c.JSON(http.StatusOK, toPublicCafe(*cafe))
}

// publicEvent is the event card returned to guests.
type publicEvent struct {
	ID          uint64  `json:"id"`
	Title       string  `json:"title"`
	Organizer   string  `json:"organizer"`
	Location    string  `json:"location"`
	StartsAt    string  `json:"starts_at"`
	PriceCoins  float64 `json:"price_coins"`
	Description string  `json:"description"`
}

func toPublicEvent(e model.Event) publicEvent {
	return publicEvent{
		ID:          e.ID,
		Title:       e.Title,
		Organizer:   e.Organizer,
		Location:    e.Location,
		StartsAt:    e.StartsAt.UTC().Format(time.RFC3339),
		PriceCoins:  e.PriceCoins,
		Description: e.Description,
	}
}

// GetPublicEvents handles GET /v1/events.
func (h *PublicHandler) GetPublicEvents(c echo.Context) error {
	events, err := h.EventRepo.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]publicEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, toPublicEvent(ev))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// GetPublicEvent handles GET /v1/events/:id.
func (h *PublicHandler) GetPublicEvent(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ev, err := h.EventRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, toPublicEvent(*ev))
}
