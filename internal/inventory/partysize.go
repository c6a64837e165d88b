package inventory

import "strings"

// NormalizeGuests trims every entry and drops the blanks, preserving the
// original order of the remaining names.  It always returns a non-nil
// slice so the result can be persisted as an empty JSON array.
func NormalizeGuests(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// PartySize computes the seats consumed by a reservation of the given type
// with the given raw guest list.  Blank guest entries are ignored.  For
// GENERAL the representative occupies one seat on top of the guests; for
// INVITED only the guests count.  The result is never negative; a zero
// result means the reservation has no effective occupants and must be
// rejected by the caller.
func PartySize(typ ReservationType, guestNames []string) int {
	n := len(NormalizeGuests(guestNames))
	if typ == TypeGeneral {
		n++
	}
	return n
}
