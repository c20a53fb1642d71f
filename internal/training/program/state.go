package program

import (
	"strings"
	"time"

	"github.com/swinglab/swinglab-backend/internal/training"
)

// DefaultTrainingDays is used when a player never picked their training days
// or the persisted list came back empty/malformed.
var DefaultTrainingDays = []string{"mon", "wed", "fri"}

var validWeekdays = map[string]bool{
	"mon": true, "tue": true, "wed": true, "thu": true,
	"fri": true, "sat": true, "sun": true,
}

// Settings holds the per-player weekly program configuration. It is owned by
// the settings operation and never touched by phase transitions.
type Settings struct {
	TrainingDays       []string `json:"trainingDays"`
	SessionsPerWeek    int      `json:"sessionsPerWeek"`
	SessionMinutes     int      `json:"sessionMinutes"`
	InSeason           bool     `json:"inSeason"`
	GameDays           []string `json:"gameDays"`
	HasSpaceToHitBalls bool     `json:"hasSpaceToHitBalls"`
}

// Normalize deduplicates and validates the day lists, falling back to the
// default training days when nothing valid remains.
func (s Settings) Normalize() Settings {
	s.TrainingDays = normalizeDays(s.TrainingDays)
	if len(s.TrainingDays) == 0 {
		s.TrainingDays = append([]string{}, DefaultTrainingDays...)
	}
	s.GameDays = normalizeDays(s.GameDays)
	return s
}

func normalizeDays(days []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range days {
		d = normalizeDay(d)
		if !validWeekdays[d] || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

func normalizeDay(day string) string {
	day = strings.ToLower(strings.TrimSpace(day))
	if len(day) > 3 {
		day = day[:3]
	}
	return day
}

// State is the per-player program state, a singleton row per player.
type State struct {
	PlayerID         string         `json:"playerId"`
	CurrentPhase     training.Phase `json:"currentPhase"`
	PhaseStartDate   time.Time      `json:"phaseStartDate"`
	ProgramStartDate time.Time      `json:"programStartDate"`

	TotalSessionsCompleted          int `json:"totalSessionsCompleted"`
	TotalOverspeedSessions          int `json:"totalOverspeedSessions"`
	OverspeedSessionsInCurrentPhase int `json:"overspeedSessionsInCurrentPhase"`
	TotalCounterweightSessions      int `json:"totalCounterweightSessions"`

	// per-level counters, keys "1".."5", zero-count levels omitted
	GroundForceSessionsByLevel map[string]int `json:"groundForceSessionsByLevel"`
	SequencingSessionsByLevel  map[string]int `json:"sequencingSessionsByLevel"`
	ExitVeloSessionsByLevel    map[string]int `json:"exitVeloSessionsByLevel"`

	LastFullAssessmentDate  *time.Time `json:"lastFullAssessmentDate"`
	LastQuickAssessmentDate *time.Time `json:"lastQuickAssessmentDate"`

	// focus flags, computed from stats elsewhere, stored but never mutated
	// by the state machine
	NeedsGroundForce bool `json:"needsGroundForce"`
	NeedsSequencing  bool `json:"needsSequencing"`
	NeedsExitVelo    bool `json:"needsExitVelo"`
	NeedsBatDelivery bool `json:"needsBatDelivery"`

	MaintenanceExtensionRequested bool `json:"maintenanceExtensionRequested"`
	NextRampUpRequested           bool `json:"nextRampUpRequested"`

	Settings Settings `json:"settings"`
}

// NewDefaultState returns a fresh program state: phase RAMP1, zero counters,
// program started on the given date.
func NewDefaultState(playerID string, startDate time.Time) State {
	day := DateOnly(startDate)
	return State{
		PlayerID:                   playerID,
		CurrentPhase:               training.PhaseRamp1,
		PhaseStartDate:             day,
		ProgramStartDate:           day,
		GroundForceSessionsByLevel: map[string]int{},
		SequencingSessionsByLevel:  map[string]int{},
		ExitVeloSessionsByLevel:    map[string]int{},
		Settings: Settings{
			TrainingDays:    append([]string{}, DefaultTrainingDays...),
			SessionsPerWeek: 3,
			SessionMinutes:  30,
		},
	}
}

// Clone returns a deep copy of the state, safe to mutate.
func (s State) Clone() State {
	c := s
	c.GroundForceSessionsByLevel = cloneCounters(s.GroundForceSessionsByLevel)
	c.SequencingSessionsByLevel = cloneCounters(s.SequencingSessionsByLevel)
	c.ExitVeloSessionsByLevel = cloneCounters(s.ExitVeloSessionsByLevel)
	if s.LastFullAssessmentDate != nil {
		d := *s.LastFullAssessmentDate
		c.LastFullAssessmentDate = &d
	}
	if s.LastQuickAssessmentDate != nil {
		d := *s.LastQuickAssessmentDate
		c.LastQuickAssessmentDate = &d
	}
	c.Settings.TrainingDays = append([]string{}, s.Settings.TrainingDays...)
	c.Settings.GameDays = append([]string{}, s.Settings.GameDays...)
	return c
}

func cloneCounters(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DateOnly truncates a timestamp to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
