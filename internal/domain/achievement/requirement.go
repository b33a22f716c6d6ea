// Package achievement defines the global achievement catalog, the closed set
// of requirement kinds, and the rule that turns user counters into progress.
package achievement

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/careerwise/careerwise-hub/internal/domain/shared"
)

// Kind is the counter a requirement measures.
type Kind string

const (
	KindDaysCompleted     Kind = "days_completed"
	KindStreakDays        Kind = "streak_days"
	KindTasksCompleted    Kind = "tasks_completed"
	KindProjectsCompleted Kind = "projects_completed"
)

// Kinds lists every supported requirement kind.
var Kinds = []Kind{KindDaysCompleted, KindStreakDays, KindTasksCompleted, KindProjectsCompleted}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDaysCompleted, KindStreakDays, KindTasksCompleted, KindProjectsCompleted:
		return true
	}
	return false
}

// Requirement is a validated unlock rule: reach Threshold on the Kind counter.
type Requirement struct {
	Kind      Kind
	Threshold int
}

type requirementJSON struct {
	Type  Kind `json:"type"`
	Count *int `json:"count"`
}

// ParseRequirement decodes and validates the stored {"type","count"} form.
func ParseRequirement(raw []byte) (Requirement, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Requirement{}, shared.ErrInvalidRequirement.Wrap(fmt.Errorf("empty requirement"))
	}

	var rj requirementJSON
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rj); err != nil {
		return Requirement{}, shared.ErrInvalidRequirement.Wrap(err)
	}
	r := Requirement{Kind: rj.Type}
	if rj.Count != nil {
		r.Threshold = *rj.Count
	}
	if err := r.Validate(); err != nil {
		return Requirement{}, err
	}
	return r, nil
}

// Validate checks the kind is known and the threshold is positive.
func (r Requirement) Validate() error {
	if !r.Kind.Valid() {
		return shared.ErrInvalidRequirement.Wrap(fmt.Errorf("unknown type %q", r.Kind))
	}
	if r.Threshold <= 0 {
		return shared.ErrInvalidRequirement.Wrap(fmt.Errorf("count must be positive, got %d", r.Threshold))
	}
	return nil
}

// MarshalJSON writes the stored {"type","count"} form.
func (r Requirement) MarshalJSON() ([]byte, error) {
	c := r.Threshold
	return json.Marshal(requirementJSON{Type: r.Kind, Count: &c})
}

// UnmarshalJSON parses and validates the stored form.
func (r *Requirement) UnmarshalJSON(b []byte) error {
	parsed, err := ParseRequirement(b)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ASSESSMENT
// ══════════════════════════════════════════════════════════════════════════════

// Counters are the per-user values requirements are measured against.
type Counters struct {
	TasksCompleted    int `json:"tasks_completed"`
	DaysCompleted     int `json:"days_completed"`
	StreakDays        int `json:"streak_days"`
	ProjectsCompleted int `json:"projects_completed"`
}

// Value returns the counter for k.
func (c Counters) Value(k Kind) int {
	switch k {
	case KindDaysCompleted:
		return c.DaysCompleted
	case KindStreakDays:
		return c.StreakDays
	case KindTasksCompleted:
		return c.TasksCompleted
	case KindProjectsCompleted:
		return c.ProjectsCompleted
	}
	return 0
}

// Assessment is the progress and unlock verdict for one requirement.
type Assessment struct {
	Progress  int
	Satisfied bool
}

// Assess computes progress = round(min(value/threshold*100, 100)).
// projects_completed has no data source and always yields 0 and unsatisfied.
func Assess(r Requirement, c Counters) Assessment {
	if r.Kind == KindProjectsCompleted || r.Threshold <= 0 {
		return Assessment{}
	}
	v := c.Value(r.Kind)
	if v < 0 {
		v = 0
	}
	pct := math.Min(float64(v)/float64(r.Threshold)*100, 100)
	return Assessment{
		Progress:  int(math.Round(pct)),
		Satisfied: v >= r.Threshold,
	}
}
