package model

import "time"

// Cafe represents a partner café listed in the app.  Each café
// belongs to one merchant and carries the hourly USDC rate used to
// settle focus sessions held there.  This struct corresponds to a
// row in the `cafes` table.
//
// Fields:
//
//	ID          – primary key identifier.
//	MerchantID  – user ID of the merchant who owns the listing.
//	Name        – display name of the café.
//	Location    – human readable address.
//	Description – free-form description shown on the detail page.
//	Amenities   – comma separated amenity tags (wifi, power, drinks...).
//	UsdcPerHour – hourly rate in USDC charged for a focus seat.  Nil
//	              when the café has not published a rate yet.
//	IsActive    – whether the listing is visible to customers.
//	CreatedAt   – timestamp when the café was created.
//	UpdatedAt   – timestamp of last update.
type Cafe struct {
	ID          uint64    // cafes.id
	MerchantID  uint64    // cafes.merchant_id
	Name        string    // cafes.name
	Location    string    // cafes.location
	Description string    // cafes.description
	Amenities   string    // cafes.amenities
	UsdcPerHour *float64  // cafes.usdc_per_hour (nullable)
	IsActive    bool      // cafes.is_active
	CreatedAt   time.Time // cafes.created_at
	UpdatedAt   time.Time // cafes.updated_at
}
