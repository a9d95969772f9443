package order

import "strings"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus maps a stored status onto a known value. Older ledgers wrote
// upper-case names; anything unrecognised is treated as pending.
func ParseStatus(raw string) Status {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return s
	case "canceled":
		return StatusCancelled
	default:
		return StatusPending
	}
}
