package progress

import (
	"time"

	"github.com/careerwise/careerwise-hub/internal/domain/shared"
	"github.com/careerwise/careerwise-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAY ADVANCEMENT
// ══════════════════════════════════════════════════════════════════════════════

// AdvanceOutcome classifies a day advancement attempt.
type AdvanceOutcome string

const (
	// OutcomeNoRecord: the user has no progress record.
	OutcomeNoRecord AdvanceOutcome = "no_record"
	// OutcomeNotAdvanced: less than 24h since last activity.
	OutcomeNotAdvanced AdvanceOutcome = "not_advanced"
	// OutcomeAlreadyFinal: elapsed time would advance but the plan is capped.
	OutcomeAlreadyFinal AdvanceOutcome = "already_final_day"
	// OutcomeAdvanced: current day moved forward.
	OutcomeAdvanced AdvanceOutcome = "advanced"
)

// Advancement is the result of ComputeAdvancement.
type Advancement struct {
	Outcome    AdvanceOutcome
	FromDay    int
	NewDay     int
	Percent    int
	HoursSince float64
}

// Advanced reports whether a write is required.
func (a Advancement) Advanced() bool { return a.Outcome == OutcomeAdvanced }

// Message returns the human-readable outcome.
func (a Advancement) Message() string {
	switch a.Outcome {
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeAlreadyFinal:
		return "already at final day"
	case OutcomeNoRecord:
		return "no progress record"
	default:
		return "not advanced"
	}
}

// ComputeAdvancement decides how far elapsed wall-clock time moves the plan.
// Whole 24-hour periods since LastActiveDate each add one day, capped at
// TotalDays. A zero LastActiveDate never advances.
func ComputeAdvancement(p *UserProgress, now time.Time) Advancement {
	if p == nil {
		return Advancement{Outcome: OutcomeNoRecord}
	}

	res := Advancement{FromDay: p.CurrentDay, NewDay: p.CurrentDay, Percent: p.ProgressPercent}
	if p.LastActiveDate.IsZero() {
		res.Outcome = OutcomeNotAdvanced
		return res
	}

	res.HoursSince = timeutil.HoursSince(p.LastActiveDate, now)
	if res.HoursSince < 24 {
		res.Outcome = OutcomeNotAdvanced
		return res
	}

	newDay := p.CurrentDay + timeutil.WholeDays(res.HoursSince)
	if newDay > p.TotalDays {
		newDay = p.TotalDays
	}
	if newDay == p.CurrentDay {
		res.Outcome = OutcomeAlreadyFinal
		return res
	}

	res.Outcome = OutcomeAdvanced
	res.NewDay = newDay
	res.Percent = shared.RoundPercent(newDay, p.TotalDays)
	return res
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK
// ══════════════════════════════════════════════════════════════════════════════

// StreakChange is the result of ComputeStreak.
type StreakChange struct {
	Changed  bool
	Previous int
	Current  int
	// Broken is true when the counter was reset to 1.
	Broken bool
	// DayGap is the absolute calendar-day distance that was observed.
	DayGap int
}

// ComputeStreak compares the calendar day of LastActiveDate with now in loc.
// Same day leaves the streak alone. Exactly one day apart increments it. Any
// larger gap, in either direction, resets it to 1. A zero LastActiveDate
// starts the streak at 1.
func ComputeStreak(p *UserProgress, now time.Time, loc *time.Location) StreakChange {
	if p == nil {
		return StreakChange{}
	}
	res := StreakChange{Previous: p.StreakDays, Current: p.StreakDays}

	if p.LastActiveDate.IsZero() {
		res.Changed = true
		res.Current = 1
		return res
	}

	gap := timeutil.CalendarDaysBetween(p.LastActiveDate, now, loc)
	if gap < 0 {
		gap = -gap
	}
	res.DayGap = gap

	switch gap {
	case 0:
		return res
	case 1:
		res.Changed = true
		res.Current = p.StreakDays + 1
	default:
		res.Changed = true
		res.Current = 1
		res.Broken = p.StreakDays > 0
	}
	return res
}
