// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver-specific errors.
package repository

import "errors"

// ErrConflict is returned when an update or delete cannot be performed
// because of conflicting state, such as shrinking an event's ticket stock
// below its reserved total or deleting an event that still has live
// reservations. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
