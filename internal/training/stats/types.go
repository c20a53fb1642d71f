package stats

import "time"

// SessionSummary is one row of the session feed, joined with its protocol.
type SessionSummary struct {
	SessionID        string     `json:"sessionId"`
	PlayerID         string     `json:"playerId"`
	ProtocolID       string     `json:"protocolId"`
	StartedAt        *time.Time `json:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt"`
	Status           string     `json:"status"`
	ProtocolTitle    string     `json:"protocolTitle"`
	ProtocolCategory string     `json:"protocolCategory"`
}

// MetricEntry is one recorded measurement. Value is kept loosely typed since
// upstream sources deliver numbers both as JSON numbers and as strings.
type MetricEntry struct {
	EntryID            string     `json:"entryId"`
	SessionID          string     `json:"sessionId"`
	PlayerID           string     `json:"playerId"`
	Value              any        `json:"valueNumber"`
	RecordedAt         *time.Time `json:"recordedAt"`
	SessionStartedAt   *time.Time `json:"sessionStartedAt"`
	SessionCompletedAt *time.Time `json:"sessionCompletedAt"`
	ProtocolID         string     `json:"protocolId"`
	ProtocolTitle      string     `json:"protocolTitle"`
	ProtocolCategory   string     `json:"protocolCategory"`
	StepID             string     `json:"stepId"`
	StepTitle          string     `json:"stepTitle"`
	MetricKey          string     `json:"metricKey"`
	VeloConfig         string     `json:"veloConfig"`
	SwingType          string     `json:"swingType"`
}

// PlayerStats is the full derived report for one player. It is recomputed
// per request, never persisted.
type PlayerStats struct {
	PlayerID      string                   `json:"playerId"`
	PersonalBest  PersonalBest             `json:"personalBest"`
	Gains         Gains                    `json:"gains"`
	ConfigBySide  map[string]SideSpeeds    `json:"configBySide"`
	FastestDrills map[string]*FastestDrill `json:"fastestDrills"`
	SessionCounts SessionCounts            `json:"sessionCounts"`
}

type PersonalBest struct {
	BatSpeedMph *float64 `json:"batSpeedMph"`
	ExitVeloMph *float64 `json:"exitVeloMph"`
}

// Gain compares a player's earliest and latest qualifying assessment value.
type Gain struct {
	BaselineMph  float64 `json:"baselineMph"`
	CurrentMph   float64 `json:"currentMph"`
	DeltaMph     float64 `json:"deltaMph"`
	DeltaPercent float64 `json:"deltaPercent"`
}

type Gains struct {
	BatSpeed *Gain `json:"batSpeed"`
	ExitVelo *Gain `json:"exitVelo"`
}

type SideSpeeds struct {
	Dominant    *float64 `json:"dominant"`
	NonDominant *float64 `json:"nonDominant"`
}

type FastestDrill struct {
	Name     string  `json:"name"`
	SpeedMph float64 `json:"speedMph"`
}

type SessionCounts struct {
	Total      int             `json:"total"`
	ByCategory map[string]int  `json:"byCategory"`
	ByProtocol []ProtocolCount `json:"byProtocol"`
}

type ProtocolCount struct {
	ProtocolID string `json:"protocolId"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Count      int    `json:"count"`
}

// Bat configuration and swing side tags after normalization.
const (
	ConfigBaseBat     = "base_bat"
	ConfigGreenSleeve = "green_sleeve"
	ConfigFullLoaded  = "full_loaded"
	ConfigGameBat     = "game_bat"

	SideDominant    = "dominant"
	SideNonDominant = "non_dominant"
)
