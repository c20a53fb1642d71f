package program

import (
	"strconv"
	"time"

	"github.com/swinglab/swinglab-backend/internal/training"
)

const (
	// overspeed sessions needed inside a ramp-up phase before moving to
	// the matching primary phase
	rampOverspeedSessionsToAdvance = 6
	// overspeed sessions inside a primary phase before maintenance
	primaryOverspeedSessionsToAdvance = 25
	// a primary phase also ends after this many days, regardless of volume
	primaryMaxDays = 70
)

// ComputeNextState applies one completed session to the given state and
// returns the resulting state. It is a pure function: the input state is
// never mutated and the same inputs always produce the same output.
//
// Only overspeed sessions can trigger a phase transition. Maintenance phases
// never auto-advance, the player leaves them only through an explicit
// next-ramp-up request.
func ComputeNextState(prev State, protocol training.Protocol, completedAt time.Time) State {
	next := prev.Clone()
	next.TotalSessionsCompleted++

	day := DateOnly(completedAt)
	c := training.ClassifyProtocol(protocol.Title, protocol.Category)

	switch c.Kind {
	case training.KindOverspeed:
		next.TotalOverspeedSessions++
		next.OverspeedSessionsInCurrentPhase++
	case training.KindCounterweight:
		next.TotalCounterweightSessions++
	case training.KindPowerMechanics:
		switch c.Mechanic {
		case training.MechanicGroundForce:
			bumpLevel(next.GroundForceSessionsByLevel, c.Level)
		case training.MechanicSequencing:
			bumpLevel(next.SequencingSessionsByLevel, c.Level)
		}
	case training.KindExitVeloApplication:
		bumpLevel(next.ExitVeloSessionsByLevel, c.Level)
	case training.KindAssessments:
		if c.FullAssessment {
			next.LastFullAssessmentDate = &day
		} else {
			next.LastQuickAssessmentDate = &day
		}
	}

	if c.Kind != training.KindOverspeed {
		return next
	}

	switch {
	case next.CurrentPhase.IsRamp():
		if next.OverspeedSessionsInCurrentPhase >= rampOverspeedSessionsToAdvance {
			primary, _ := next.CurrentPhase.PrimaryPhase()
			next.enterPhase(primary, day)
		}
	case next.CurrentPhase.IsPrimary():
		if next.OverspeedSessionsInCurrentPhase >= primaryOverspeedSessionsToAdvance ||
			daysBetween(prev.PhaseStartDate, day) >= primaryMaxDays {
			maint, _ := next.CurrentPhase.MaintenancePhase()
			next.enterPhase(maint, day)
		}
	}

	return next
}

func (s *State) enterPhase(phase training.Phase, day time.Time) {
	s.CurrentPhase = phase
	s.PhaseStartDate = day
	s.OverspeedSessionsInCurrentPhase = 0
}

func bumpLevel(counters map[string]int, level int) {
	if level < 1 || level > 5 {
		level = 1
	}
	counters[strconv.Itoa(level)]++
}

// daysBetween returns the number of whole days from one calendar day to
// another, floored.
func daysBetween(from, to time.Time) int {
	return int(DateOnly(to).Sub(DateOnly(from)).Hours() / 24)
}
