package inventory

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewReservationCode returns a fresh 4-digit display code in the range
// 1000-9999.  Codes are only generated for brand-new reservations; edits
// carry the existing code forward.  Uniqueness per event is not enforced:
// the code is a human-friendly label shown on the confirmation screen,
// while the record itself is keyed by (event, member).
func NewReservationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}
