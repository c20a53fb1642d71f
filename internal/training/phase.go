package training

// Phase is one of 9 program states: three repeating cycles of
// Ramp -> Primary -> Maintenance.
type Phase string

const (
	PhaseRamp1    Phase = "RAMP1"
	PhasePrimary1 Phase = "PRIMARY1"
	PhaseMaint1   Phase = "MAINT1"
	PhaseRamp2    Phase = "RAMP2"
	PhasePrimary2 Phase = "PRIMARY2"
	PhaseMaint2   Phase = "MAINT2"
	PhaseRamp3    Phase = "RAMP3"
	PhasePrimary3 Phase = "PRIMARY3"
	PhaseMaint3   Phase = "MAINT3"
)

func (p Phase) String() string {
	return string(p)
}

func (p Phase) IsValid() bool {
	switch p {
	case PhaseRamp1, PhasePrimary1, PhaseMaint1,
		PhaseRamp2, PhasePrimary2, PhaseMaint2,
		PhaseRamp3, PhasePrimary3, PhaseMaint3:
		return true
	default:
		return false
	}
}

func (p Phase) IsRamp() bool {
	return p == PhaseRamp1 || p == PhaseRamp2 || p == PhaseRamp3
}

func (p Phase) IsPrimary() bool {
	return p == PhasePrimary1 || p == PhasePrimary2 || p == PhasePrimary3
}

func (p Phase) IsMaintenance() bool {
	return p == PhaseMaint1 || p == PhaseMaint2 || p == PhaseMaint3
}

// Cycle returns the 1-based program cycle this phase belongs to, 0 for invalid phases.
func (p Phase) Cycle() int {
	switch p {
	case PhaseRamp1, PhasePrimary1, PhaseMaint1:
		return 1
	case PhaseRamp2, PhasePrimary2, PhaseMaint2:
		return 2
	case PhaseRamp3, PhasePrimary3, PhaseMaint3:
		return 3
	default:
		return 0
	}
}

// PrimaryPhase returns the primary phase of the same cycle for a ramp phase.
func (p Phase) PrimaryPhase() (Phase, bool) {
	switch p {
	case PhaseRamp1:
		return PhasePrimary1, true
	case PhaseRamp2:
		return PhasePrimary2, true
	case PhaseRamp3:
		return PhasePrimary3, true
	default:
		return p, false
	}
}

// MaintenancePhase returns the maintenance phase of the same cycle for a primary phase.
func (p Phase) MaintenancePhase() (Phase, bool) {
	switch p {
	case PhasePrimary1:
		return PhaseMaint1, true
	case PhasePrimary2:
		return PhaseMaint2, true
	case PhasePrimary3:
		return PhaseMaint3, true
	default:
		return p, false
	}
}

// NextRampPhase returns the ramp phase of the next cycle for a maintenance
// phase. MAINT3 is terminal: the three-cycle program has no fourth ramp-up.
func (p Phase) NextRampPhase() (Phase, bool) {
	switch p {
	case PhaseMaint1:
		return PhaseRamp2, true
	case PhaseMaint2:
		return PhaseRamp3, true
	default:
		return p, false
	}
}
