package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/antiapp/cafe-focus-rewards/internal/model"
)

// CafeRepo provides CRUD operations for partner café listings.
// Cafés belong to a merchant; ownership is enforced here so
// handlers can rely on ErrForbidden instead of re-querying.
type CafeRepo struct {
	db *sql.DB
}

// NewCafeRepo returns a CafeRepo bound to the given database.
func NewCafeRepo(db *sql.DB) *CafeRepo { return &CafeRepo{db: db} }

// DB exposes the underlying handle so handlers can open
// transactions spanning multiple repositories.
func (r *CafeRepo) DB() *sql.DB { return r.db }

const cafeColumns = `id, merchant_id, name, location, description, amenities, usdc_per_hour, is_active, created_at, updated_at`

func scanCafe(scan func(dest ...interface{}) error) (model.Cafe, error) {
	var (
		cafe model.Cafe
		rate sql.NullFloat64
	)
	err := scan(&cafe.ID, &cafe.MerchantID, &cafe.Name, &cafe.Location, &cafe.Description,
		&cafe.Amenities, &rate, &cafe.IsActive, &cafe.CreatedAt, &cafe.UpdatedAt)
	if err != nil {
		return model.Cafe{}, err
	}
	if rate.Valid {
		v := rate.Float64
		cafe.UsdcPerHour = &v
	}
	return cafe, nil
}

// Create inserts a café for the merchant and returns the stored row.
func (r *CafeRepo) Create(ctx context.Context, c *model.Cafe) (*model.Cafe, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cafes (merchant_id, name, location, description, amenities, usdc_per_hour, is_active)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.MerchantID, c.Name, c.Location, c.Description, c.Amenities, nullableRate(c.UsdcPerHour), c.IsActive)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Update applies the mutable listing fields after verifying that the
// café belongs to the merchant.  Returns ErrCafeNotFound when the
// café does not exist and ErrForbidden when it is owned by someone
// else.
func (r *CafeRepo) Update(ctx context.Context, merchantID uint64, c *model.Cafe) (*model.Cafe, error) {
	var ownerID uint64
	err := r.db.QueryRowContext(ctx, `SELECT merchant_id FROM cafes WHERE id = ?`, c.ID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return nil, ErrCafeNotFound
	}
	if err != nil {
		return nil, err
	}
	if ownerID != merchantID {
		return nil, ErrForbidden
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE cafes SET name = ?, location = ?, description = ?, amenities = ?, usdc_per_hour = ?, is_active = ?
         WHERE id = ?`,
		c.Name, c.Location, c.Description, c.Amenities, nullableRate(c.UsdcPerHour), c.IsActive, c.ID)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, c.ID)
}

// GetByID returns a café by ID or ErrCafeNotFound.
func (r *CafeRepo) GetByID(ctx context.Context, id uint64) (*model.Cafe, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cafeColumns+` FROM cafes WHERE id = ?`, id)
	cafe, err := scanCafe(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrCafeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cafe, nil
}

// ListActive returns active cafés for the public browse page.  The
// optional search term matches name and location; amenities narrows
// to listings carrying every requested tag.  Results are ordered by
// name for deterministic output.
func (r *CafeRepo) ListActive(ctx context.Context, search string, amenities []string) ([]model.Cafe, error) {
	query := `SELECT ` + cafeColumns + ` FROM cafes WHERE is_active = 1`
	args := make([]interface{}, 0, 1+len(amenities))
	if s := strings.TrimSpace(search); s != "" {
		query += ` AND (name LIKE ? OR location LIKE ?)`
		like := "%" + s + "%"
		args = append(args, like, like)
	}
	for _, a := range amenities {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		// amenities is a comma separated tag list; FIND_IN_SET avoids
		// false positives from substring matches (e.g. "power" inside
		// "powerbank").
		query += ` AND FIND_IN_SET(?, amenities) > 0`
		args = append(args, a)
	}
	query += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cafes := make([]model.Cafe, 0)
	for rows.Next() {
		cafe, err := scanCafe(rows.Scan)
		if err != nil {
			return nil, err
		}
		cafes = append(cafes, cafe)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cafes, nil
}

// ListByMerchant returns all cafés (active or not) owned by the
// merchant, newest first.
func (r *CafeRepo) ListByMerchant(ctx context.Context, merchantID uint64) ([]model.Cafe, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cafeColumns+` FROM cafes WHERE merchant_id = ? ORDER BY created_at DESC`, merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cafes := make([]model.Cafe, 0)
	for rows.Next() {
		cafe, err := scanCafe(rows.Scan)
		if err != nil {
			return nil, err
		}
		cafes = append(cafes, cafe)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cafes, nil
}

func nullableRate(rate *float64) interface{} {
	if rate == nil {
		return nil
	}
	return *rate
}
