package stats

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/swinglab/swinglab-backend/internal/training"
)

// BuildPlayerStats computes the full stats report from the player's session
// and metric feeds. Pure and deterministic, no I/O: only sessions with
// status "completed" count, and only metrics belonging to those sessions
// feed the derived figures.
func BuildPlayerStats(playerID string, sessions []SessionSummary, metricEntries []MetricEntry) PlayerStats {
	completed := make(map[string]SessionSummary)
	for _, s := range sessions {
		if s.Status == "completed" {
			completed[s.SessionID] = s
		}
	}

	stats := PlayerStats{
		PlayerID:      playerID,
		SessionCounts: buildSessionCounts(completed),
		ConfigBySide: map[string]SideSpeeds{
			ConfigBaseBat:     {},
			ConfigGreenSleeve: {},
			ConfigFullLoaded:  {},
		},
		FastestDrills: map[string]*FastestDrill{
			ConfigBaseBat:     nil,
			ConfigGreenSleeve: nil,
			ConfigFullLoaded:  nil,
		},
	}

	assessmentSessions := collectGameBatAssessments(completed, metricEntries)
	stats.PersonalBest = buildPersonalBest(assessmentSessions)
	stats.Gains = buildGains(assessmentSessions)

	applyVeloBatMetrics(&stats, completed, metricEntries)

	return stats
}

func buildSessionCounts(completed map[string]SessionSummary) SessionCounts {
	counts := SessionCounts{
		ByCategory: map[string]int{},
	}

	byProtocol := make(map[string]*ProtocolCount)
	for _, s := range completed {
		counts.Total++

		switch c := training.ClassifyProtocol(s.ProtocolTitle, s.ProtocolCategory); c.Kind {
		case training.KindOverspeed, training.KindCounterweight,
			training.KindPowerMechanics, training.KindWarmUp, training.KindAssessments:
			counts.ByCategory[string(c.Kind)]++
		}

		pc, ok := byProtocol[s.ProtocolID]
		if !ok {
			pc = &ProtocolCount{
				ProtocolID: s.ProtocolID,
				Title:      s.ProtocolTitle,
				Category:   s.ProtocolCategory,
			}
			byProtocol[s.ProtocolID] = pc
		}
		pc.Count++
	}

	for _, pc := range byProtocol {
		counts.ByProtocol = append(counts.ByProtocol, *pc)
	}
	// stable output order
	sort.Slice(counts.ByProtocol, func(i, j int) bool {
		a, b := counts.ByProtocol[i], counts.ByProtocol[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Title < b.Title
	})

	return counts
}

// assessmentSession holds the per-session maxima of game bat measurements.
// A single session may contribute to both metrics.
type assessmentSession struct {
	day      time.Time
	batSpeed *float64
	exitVelo *float64
}

func collectGameBatAssessments(completed map[string]SessionSummary, metricEntries []MetricEntry) []assessmentSession {
	type sessionMax struct {
		order     int
		maxes     assessmentSession
		hasAnyVal bool
	}
	bySession := make(map[string]*sessionMax)
	order := 0

	for _, entry := range metricEntries {
		if _, ok := completed[entry.SessionID]; !ok {
			continue
		}
		c := training.ClassifyProtocol(entry.ProtocolTitle, entry.ProtocolCategory)
		if c.Kind != training.KindAssessments {
			continue
		}
		if normalizeConfig(entry.VeloConfig) != ConfigGameBat {
			continue
		}

		isBatSpeed := isBatSpeedKey(entry.MetricKey)
		isExitVelo := isExitVeloKey(entry.MetricKey)
		if !isBatSpeed && !isExitVelo {
			continue
		}

		value, ok := parseNumeric(entry.Value)
		if !ok {
			continue
		}

		sm, found := bySession[entry.SessionID]
		if !found {
			sm = &sessionMax{
				order: order,
				maxes: assessmentSession{day: metricDay(entry)},
			}
			bySession[entry.SessionID] = sm
			order++
		}

		if isBatSpeed {
			sm.maxes.batSpeed = maxOf(sm.maxes.batSpeed, value)
		}
		if isExitVelo {
			sm.maxes.exitVelo = maxOf(sm.maxes.exitVelo, value)
		}
		sm.hasAnyVal = true
	}

	ordered := make([]*sessionMax, 0, len(bySession))
	for _, sm := range bySession {
		if !sm.hasAnyVal {
			continue
		}
		ordered = append(ordered, sm)
	}

	// chronological, insertion order breaking same-day ties
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].maxes.day.Equal(ordered[j].maxes.day) {
			return ordered[i].maxes.day.Before(ordered[j].maxes.day)
		}
		return ordered[i].order < ordered[j].order
	})

	out := make([]assessmentSession, 0, len(ordered))
	for _, sm := range ordered {
		out = append(out, sm.maxes)
	}
	return out
}

func buildPersonalBest(sessions []assessmentSession) PersonalBest {
	var pb PersonalBest
	for _, s := range sessions {
		if s.batSpeed != nil {
			pb.BatSpeedMph = maxOf(pb.BatSpeedMph, *s.batSpeed)
		}
		if s.exitVelo != nil {
			pb.ExitVeloMph = maxOf(pb.ExitVeloMph, *s.exitVelo)
		}
	}
	return pb
}

func buildGains(sessions []assessmentSession) Gains {
	return Gains{
		BatSpeed: buildGain(sessions, func(s assessmentSession) *float64 { return s.batSpeed }),
		ExitVelo: buildGain(sessions, func(s assessmentSession) *float64 { return s.exitVelo }),
	}
}

// buildGain compares the first and last chronological value of one metric.
// Nil when fewer than two sessions carry the metric or the baseline is not
// positive.
func buildGain(sessions []assessmentSession, value func(assessmentSession) *float64) *Gain {
	var values []float64
	for _, s := range sessions {
		if v := value(s); v != nil {
			values = append(values, *v)
		}
	}
	if len(values) < 2 {
		return nil
	}

	baseline, current := values[0], values[len(values)-1]
	if baseline <= 0 {
		return nil
	}

	delta := current - baseline
	return &Gain{
		BaselineMph:  baseline,
		CurrentMph:   current,
		DeltaMph:     delta,
		DeltaPercent: delta / baseline * 100,
	}
}

func applyVeloBatMetrics(stats *PlayerStats, completed map[string]SessionSummary, metricEntries []MetricEntry) {
	for _, entry := range metricEntries {
		if _, ok := completed[entry.SessionID]; !ok {
			continue
		}
		c := training.ClassifyProtocol(entry.ProtocolTitle, entry.ProtocolCategory)
		if c.Kind != training.KindOverspeed && c.Kind != training.KindCounterweight {
			continue
		}

		config := normalizeConfig(entry.VeloConfig)
		if config == "" || config == ConfigGameBat {
			continue
		}
		side := normalizeSide(entry.SwingType)
		if side == "" {
			continue
		}
		if !isBatSpeedKey(entry.MetricKey) {
			continue
		}
		value, ok := parseNumeric(entry.Value)
		if !ok {
			continue
		}

		speeds := stats.ConfigBySide[config]
		switch side {
		case SideDominant:
			speeds.Dominant = maxOf(speeds.Dominant, value)
		case SideNonDominant:
			speeds.NonDominant = maxOf(speeds.NonDominant, value)
		}
		stats.ConfigBySide[config] = speeds

		if side == SideDominant {
			fastest := stats.FastestDrills[config]
			if fastest == nil || value > fastest.SpeedMph {
				stats.FastestDrills[config] = &FastestDrill{
					Name:     drillName(entry.StepTitle),
					SpeedMph: value,
				}
			}
		}
	}
}

// metricDay picks the date used for chronological ordering, preferring the
// session completion time, then its start time, then the recording time.
func metricDay(entry MetricEntry) time.Time {
	for _, t := range []*time.Time{entry.SessionCompletedAt, entry.SessionStartedAt, entry.RecordedAt} {
		if t != nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Time{}
}

func drillName(stepTitle string) string {
	name := strings.TrimSpace(strings.SplitN(stepTitle, " - ", 2)[0])
	if name == "" {
		return "Drill"
	}
	return name
}

func normalizeConfig(config string) string {
	switch strings.ToLower(strings.TrimSpace(config)) {
	case "base_bat", "base-bat", "basebat":
		return ConfigBaseBat
	case "green_sleeve", "green-sleeve", "greensleeve":
		return ConfigGreenSleeve
	case "full_loaded", "fully_loaded", "full-load":
		return ConfigFullLoaded
	case "game_bat", "gamebat":
		return ConfigGameBat
	default:
		return ""
	}
}

func normalizeSide(side string) string {
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "dominant":
		return SideDominant
	case "non_dominant", "non-dominant":
		return SideNonDominant
	default:
		return ""
	}
}

func isBatSpeedKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "bat_speed" || key == "max_bat_speed" {
		return true
	}
	return strings.Contains(key, "bat") && strings.Contains(key, "speed")
}

func isExitVeloKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "exit_velo" || key == "exit_velocity" {
		return true
	}
	return strings.Contains(key, "exit") && strings.Contains(key, "velo")
}

// parseNumeric coerces loosely typed metric values to floats. Strings that
// look numeric are converted, everything non-finite or unparsable is treated
// as absent.
func parseNumeric(value any) (float64, bool) {
	var parsed float64
	switch v := value.(type) {
	case float64:
		parsed = v
	case float32:
		parsed = float64(v)
	case int:
		parsed = float64(v)
	case int64:
		parsed = float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		parsed = f
	default:
		return 0, false
	}

	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, false
	}
	return parsed, true
}

func maxOf(current *float64, candidate float64) *float64 {
	if current == nil || candidate > *current {
		return &candidate
	}
	return current
}
