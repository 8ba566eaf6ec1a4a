package utils

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// QR payloads follow the antiapp:// scheme displayed at each café:
// check-in and check-out codes carry the café ID in the path and a
// rotating nonce in the query so screenshots go stale.  The mobile
// client scans the code and posts the raw payload; VerifyQR checks
// the action and café before any session mutation happens.

// QR actions embedded in the payload path.
const (
	QRCheckIn  = "check-in"
	QRCheckOut = "check-out"
)

// ErrInvalidQR is returned when a scanned payload is not a valid
// antiapp:// code for the expected action.
var ErrInvalidQR = errors.New("invalid qr payload")

// BuildQR renders a scannable payload for the café and action, e.g.
// antiapp://check-in/42?n=<nonce>.
func BuildQR(action string, cafeID uint64) string {
	return "antiapp://" + action + "/" + strconv.FormatUint(cafeID, 10) + "?n=" + uuid.NewString()
}

// VerifyQR parses a scanned payload, validates the scheme and
// action, and returns the café ID it names.  The nonce is carried
// for display freshness only and is not validated here.
func VerifyQR(payload, wantAction string) (uint64, error) {
	payload = strings.TrimSpace(payload)
	u, err := url.Parse(payload)
	if err != nil || u.Scheme != "antiapp" || u.Host != wantAction {
		return 0, ErrInvalidQR
	}
	idStr := strings.Trim(u.Path, "/")
	cafeID, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || cafeID == 0 {
		return 0, ErrInvalidQR
	}
	return cafeID, nil
}
