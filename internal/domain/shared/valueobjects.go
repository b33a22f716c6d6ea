package shared

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// ═══════════════════════════════════════════════════════════════════════════
// UserID Value Object
// ═══════════════════════════════════════════════════════════════════════════

// UserID identifies an account. Always a UUID string.
type UserID string

// NewUserID generates a fresh identifier.
func NewUserID() UserID {
	return UserID(uuid.NewString())
}

// ParseUserID validates s as a UUID.
func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", WrapError("shared", "ParseUserID", ErrInvalidID, "user id must be a UUID", err)
	}
	return UserID(id.String()), nil
}

func (u UserID) String() string { return string(u) }
func (u UserID) IsEmpty() bool  { return u == "" }

// ═══════════════════════════════════════════════════════════════════════════
// XP and Level
// ═══════════════════════════════════════════════════════════════════════════

// XPPerLevel is the XP span of one level.
const XPPerLevel = 500

// XP represents experience points. Never negative.
type XP int

// Int returns the underlying int value.
func (x XP) Int() int { return int(x) }

// Add returns x+amount floored at zero.
func (x XP) Add(amount int) XP {
	r := int(x) + amount
	if r < 0 {
		return 0
	}
	return XP(r)
}

// Level returns floor(xp / XPPerLevel) + 1.
func (x XP) Level() int {
	if x <= 0 {
		return 1
	}
	return int(x)/XPPerLevel + 1
}

// ProgressToNextLevel returns the percentage (0..99) through the current level.
func (x XP) ProgressToNextLevel() int {
	if x <= 0 {
		return 0
	}
	return (int(x) % XPPerLevel) * 100 / XPPerLevel
}

// ═══════════════════════════════════════════════════════════════════════════
// Percent helpers
// ═══════════════════════════════════════════════════════════════════════════

// RoundPercent returns round(part/whole*100) clamped to 0..100.
// Halves round away from zero.
func RoundPercent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	p := math.Round(float64(part) / float64(whole) * 100)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(p)
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination
// ═══════════════════════════════════════════════════════════════════════════

// Limit clamps n into [1,max], using def when n is not positive.
func Limit(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
