package achievement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Definition is a validated catalog entry.
type Definition struct {
	ID          string      `json:"id" yaml:"id"`
	Type        string      `json:"type" yaml:"type"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Icon        string      `json:"icon" yaml:"icon"`
	Requirement Requirement `json:"requirement" yaml:"-"`
}

// Record is a catalog row as stored, with the requirement still encoded.
type Record struct {
	ID              string
	Type            string
	Title           string
	Description     string
	Icon            string
	RequirementJSON json.RawMessage
}

// ToRecord encodes d for storage.
func (d Definition) ToRecord() (Record, error) {
	raw, err := json.Marshal(d.Requirement)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:              d.ID,
		Type:            d.Type,
		Title:           d.Title,
		Description:     d.Description,
		Icon:            d.Icon,
		RequirementJSON: raw,
	}, nil
}

// RecordError reports a catalog row that failed validation.
type RecordError struct {
	ID  string
	Err error
}

func (e *RecordError) Error() string { return fmt.Sprintf("achievement %q: %v", e.ID, e.Err) }
func (e *RecordError) Unwrap() error { return e.Err }

// BuildCatalog parses every record. Rows with malformed requirements are left
// out of the catalog and reported individually so callers can skip them.
func BuildCatalog(records []Record) ([]Definition, []error) {
	defs := make([]Definition, 0, len(records))
	var errs []error
	for _, rec := range records {
		req, err := ParseRequirement(rec.RequirementJSON)
		if err != nil {
			errs = append(errs, &RecordError{ID: rec.ID, Err: err})
			continue
		}
		defs = append(defs, Definition{
			ID:          rec.ID,
			Type:        rec.Type,
			Title:       rec.Title,
			Description: rec.Description,
			Icon:        rec.Icon,
			Requirement: req,
		})
	}
	return defs, errs
}

// ══════════════════════════════════════════════════════════════════════════════
// USER ACHIEVEMENT
// ══════════════════════════════════════════════════════════════════════════════

// UserAchievement is a user's standing on one catalog entry.
// Unique on (UserID, AchievementID). Never deleted.
type UserAchievement struct {
	UserID        string
	AchievementID string
	Unlocked      bool
	UnlockedAt    *time.Time
	Progress      int
	UpdatedAt     time.Time
}

// Apply records an assessment. Unlocked never reverts and UnlockedAt is set
// only on the first unlock. Returns true when this call unlocked it.
func (ua *UserAchievement) Apply(a Assessment, now time.Time) bool {
	ua.Progress = a.Progress
	ua.UpdatedAt = now
	if !a.Satisfied || ua.Unlocked {
		return false
	}
	ua.Unlocked = true
	if ua.UnlockedAt == nil {
		at := now
		ua.UnlockedAt = &at
	}
	return true
}

// Repository stores the catalog and per-user rows.
type Repository interface {
	ListDefinitions(ctx context.Context) ([]Record, error)
	UpsertDefinition(ctx context.Context, rec Record) error

	ListForUser(ctx context.Context, userID string) ([]UserAchievement, error)
	Upsert(ctx context.Context, ua *UserAchievement) error
}
