package schedule

import (
	"time"

	"github.com/swinglab/swinglab-backend/internal/training"
)

const (
	DefaultHorizonWeeks = 4
	maxHorizonWeeks     = 12

	warmUpMinutes     = 10
	minMainMinutes    = 10
	defaultSessionMin = 30
)

// Config is the weekly program configuration the projector simulates with.
type Config struct {
	TrainingDays    []string  `json:"trainingDays"`
	SessionsPerWeek int       `json:"sessionsPerWeek"`
	SessionMinutes  int       `json:"sessionMinutes"`
	InSeason        bool      `json:"inSeason"`
	GameDays        []string  `json:"gameDays"`
	StartDate       time.Time `json:"startDate"`
	HorizonWeeks    int       `json:"horizonWeeks"`
}

// Block is one prescribed protocol slot on a training day.
type Block struct {
	Category        string `json:"category"`
	DurationMinutes int    `json:"durationMinutes"`
}

// Day is one projected calendar day.
type Day struct {
	Date          time.Time `json:"date"`
	Weekday       string    `json:"weekday"`
	IsTrainingDay bool      `json:"isTrainingDay"`
	IsGameDay     bool      `json:"isGameDay"`
	Blocks        []Block   `json:"blocks"`
}

var weekdayCodes = map[time.Weekday]string{
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
	time.Sunday:    "sun",
}

// phaseBlockMix prescribes the rotation of main protocol blocks per phase
// family. Overspeed carries ramp-up and primary phases, maintenance runs a
// reduced overspeed cadence.
func phaseBlockMix(phase training.Phase) []string {
	switch {
	case phase.IsRamp():
		return []string{
			string(training.KindOverspeed),
			string(training.KindOverspeed),
			string(training.KindPowerMechanics),
		}
	case phase.IsPrimary():
		return []string{
			string(training.KindOverspeed),
			string(training.KindPowerMechanics),
			string(training.KindOverspeed),
			string(training.KindExitVeloApplication),
		}
	default:
		return []string{
			string(training.KindOverspeed),
			string(training.KindCounterweight),
			string(training.KindPowerMechanics),
		}
	}
}

// Project enumerates the calendar over the configured horizon, marking
// training and game days and assigning protocol blocks per the current
// phase's mix. A pure forward simulation, regenerated on every view: same
// config and phase always produce the same calendar.
func Project(cfg Config, phase training.Phase) []Day {
	horizonWeeks := cfg.HorizonWeeks
	if horizonWeeks <= 0 {
		horizonWeeks = DefaultHorizonWeeks
	}
	if horizonWeeks > maxHorizonWeeks {
		horizonWeeks = maxHorizonWeeks
	}

	sessionMinutes := cfg.SessionMinutes
	if sessionMinutes <= 0 {
		sessionMinutes = defaultSessionMin
	}
	mainMinutes := sessionMinutes - warmUpMinutes
	if mainMinutes < minMainMinutes {
		mainMinutes = minMainMinutes
	}

	trainingDays := daySet(cfg.TrainingDays)
	gameDays := daySet(cfg.GameDays)
	blockMix := phaseBlockMix(phase)

	start := time.Date(
		cfg.StartDate.Year(), cfg.StartDate.Month(), cfg.StartDate.Day(),
		0, 0, 0, 0, time.UTC,
	)

	totalDays := horizonWeeks * 7
	calendar := make([]Day, 0, totalDays)
	blockIdx := 0
	trainedThisWeek := 0

	for i := 0; i < totalDays; i++ {
		if i%7 == 0 {
			trainedThisWeek = 0
		}

		date := start.AddDate(0, 0, i)
		weekday := weekdayCodes[date.Weekday()]
		day := Day{
			Date:    date,
			Weekday: weekday,
		}

		// in season, games take the day over training
		if cfg.InSeason && gameDays[weekday] {
			day.IsGameDay = true
			calendar = append(calendar, day)
			continue
		}

		sessionsPerWeek := cfg.SessionsPerWeek
		if sessionsPerWeek <= 0 {
			sessionsPerWeek = len(cfg.TrainingDays)
		}

		if trainingDays[weekday] && trainedThisWeek < sessionsPerWeek {
			day.IsTrainingDay = true
			day.Blocks = []Block{
				{Category: string(training.KindWarmUp), DurationMinutes: warmUpMinutes},
				{Category: blockMix[blockIdx%len(blockMix)], DurationMinutes: mainMinutes},
			}
			blockIdx++
			trainedThisWeek++
		}

		calendar = append(calendar, day)
	}

	return calendar
}

func daySet(days []string) map[string]bool {
	set := make(map[string]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}
