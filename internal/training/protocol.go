package training

import (
	"regexp"
	"strconv"
	"strings"
)

// Protocol is the training protocol a session follows.
type Protocol struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Category     string `json:"category"`
	IsAssessment bool   `json:"isAssessment"`
}

// Kind is the normalized protocol category.
type Kind string

const (
	KindOverspeed           Kind = "overspeed"
	KindCounterweight       Kind = "counterweight"
	KindPowerMechanics      Kind = "power_mechanics"
	KindExitVeloApplication Kind = "exit_velo_application"
	KindAssessments         Kind = "assessments"
	KindWarmUp              Kind = "warm_up"
	KindOther               Kind = "other"
)

func (k Kind) String() string {
	return string(k)
}

// Mechanic is the power-mechanics drill family, sniffed from the protocol title.
type Mechanic string

const (
	MechanicGroundForce Mechanic = "ground_force"
	MechanicSequencing  Mechanic = "sequencing"
	MechanicBatDelivery Mechanic = "bat_delivery"
	MechanicNone        Mechanic = ""
)

// Classification is the result of classifying a protocol by its
// free-text category and title.
type Classification struct {
	Kind     Kind
	Mechanic Mechanic
	// Level is the drill level 1-5 parsed from the title, 1 when absent.
	// Meaningful for ground force, sequencing and exit velo protocols.
	Level int
	// FullAssessment is set for assessment protocols whose title mentions
	// "full"; every other assessment counts as a quick assessment.
	FullAssessment bool
}

var levelRegex = regexp.MustCompile(`level\s*([1-5])`)

// ClassifyProtocol maps a protocol's category and title strings to a
// Classification. The matching rules are load-bearing business logic:
// protocols are classified by lower-cased substring sniffing, and all
// of that fragility is isolated here.
func ClassifyProtocol(title, category string) Classification {
	c := Classification{Level: 1}

	switch strings.ToLower(strings.TrimSpace(category)) {
	case "overspeed":
		c.Kind = KindOverspeed
	case "counterweight":
		c.Kind = KindCounterweight
	case "power_mechanics":
		c.Kind = KindPowerMechanics
	case "exit_velo_application":
		c.Kind = KindExitVeloApplication
	case "assessments":
		c.Kind = KindAssessments
	case "warm_up":
		c.Kind = KindWarmUp
	default:
		c.Kind = KindOther
	}

	titleLower := strings.ToLower(title)

	switch c.Kind {
	case KindPowerMechanics:
		switch {
		case strings.Contains(titleLower, "ground force"):
			c.Mechanic = MechanicGroundForce
			c.Level = parseLevel(titleLower)
		case strings.Contains(titleLower, "sequencing"):
			c.Mechanic = MechanicSequencing
			c.Level = parseLevel(titleLower)
		case strings.Contains(titleLower, "bat delivery"):
			// recognized but not counted per level yet
			c.Mechanic = MechanicBatDelivery
		}
	case KindExitVeloApplication:
		c.Level = parseLevel(titleLower)
	case KindAssessments:
		c.FullAssessment = strings.Contains(titleLower, "full")
	}

	return c
}

func parseLevel(titleLower string) int {
	m := levelRegex.FindStringSubmatch(titleLower)
	if len(m) != 2 {
		return 1
	}
	level, err := strconv.Atoi(m[1])
	if err != nil {
		return 1
	}
	return level
}
