package program

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/swinglab/swinglab-backend/internal/telemetry/metrics"
	"github.com/swinglab/swinglab-backend/internal/telemetry/tracing"
	"github.com/swinglab/swinglab-backend/internal/training"
)

// ErrInvalidTransition is returned for manual phase transitions that the
// current phase does not allow. It is a user error, not a server fault.
var ErrInvalidTransition = errors.New("invalid phase transition")

type stateRepo interface {
	Get(ctx context.Context, playerID string) (*State, error)
	Save(ctx context.Context, state State) error
	Delete(ctx context.Context, playerID string) error
}

// Service owns all reads and writes of program state. Writes for the same
// player are serialized through a per-player lock, so a state row never sees
// two concurrent read-modify-write cycles.
type Service struct {
	repo    stateRepo
	metrics *metrics.Manager
	now     func() time.Time

	locksMux    sync.Mutex
	playerLocks map[string]*sync.Mutex
}

func NewService(repo stateRepo, metricsManager *metrics.Manager) *Service {
	return &Service{
		repo:        repo,
		metrics:     metricsManager,
		now:         time.Now,
		playerLocks: make(map[string]*sync.Mutex),
	}
}

func (s *Service) lockPlayer(playerID string) func() {
	s.locksMux.Lock()
	mutex, ok := s.playerLocks[playerID]
	if !ok {
		mutex = &sync.Mutex{}
		s.playerLocks[playerID] = mutex
	}
	s.locksMux.Unlock()

	mutex.Lock()
	return mutex.Unlock
}

// Get returns the player's program state, ErrStateNotFound when the player
// has not completed a session yet.
func (s *Service) Get(ctx context.Context, playerID string) (_ *State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.service.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("player.id", playerID))

	return s.repo.Get(ctx, playerID)
}

// ApplyCompletedSession advances the player's state machine with one
// completed session. A missing row means this is the player's first session,
// so a default state is created first.
func (s *Service) ApplyCompletedSession(
	ctx context.Context,
	playerID string,
	protocol training.Protocol,
	completedAt time.Time,
) (_ *State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.service.applyCompletedSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("player.id", playerID),
		attribute.String("protocol.id", protocol.ID),
	)

	defer s.lockPlayer(playerID)()

	prev, err := s.repo.Get(ctx, playerID)
	if errors.Is(err, ErrStateNotFound) {
		fresh := NewDefaultState(playerID, completedAt)
		prev = &fresh
	} else if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}

	next := ComputeNextState(*prev, protocol, completedAt)
	if err := s.repo.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	s.metrics.CounterSessionsCompleted.Inc()
	if next.CurrentPhase != prev.CurrentPhase {
		s.metrics.CounterPhaseTransitions.Inc()
		log.Debugf(
			"player %s: phase %s -> %s",
			playerID, prev.CurrentPhase, next.CurrentPhase,
		)
	}

	return &next, nil
}

type ResetParams struct {
	// zero value means "today"
	ProgramStartDate time.Time
	// nil keeps the default settings
	Settings *Settings
}

// Reset discards the player's state and starts a fresh program at RAMP1.
func (s *Service) Reset(ctx context.Context, playerID string, params ResetParams) (_ *State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.service.reset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("player.id", playerID))

	defer s.lockPlayer(playerID)()

	startDate := params.ProgramStartDate
	if startDate.IsZero() {
		startDate = s.now()
	}

	fresh := NewDefaultState(playerID, startDate)
	if params.Settings != nil {
		fresh.Settings = params.Settings.Normalize()
	}

	if err := s.repo.Save(ctx, fresh); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	return &fresh, nil
}

// RequestMaintenanceExtension records the player's wish to stay in
// maintenance. Only flags change, never the phase.
func (s *Service) RequestMaintenanceExtension(ctx context.Context, playerID string) (_ *State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.service.requestMaintenanceExtension")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("player.id", playerID))

	defer s.lockPlayer(playerID)()

	state, err := s.repo.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}

	state.MaintenanceExtensionRequested = true
	state.NextRampUpRequested = false

	if err := s.repo.Save(ctx, *state); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	return state, nil
}

// StartNextRampUp moves the player out of maintenance into the next ramp-up,
// MAINT1 to RAMP2 or MAINT2 to RAMP3. Every other phase, MAINT3 included,
// gets ErrInvalidTransition and the state stays untouched.
func (s *Service) StartNextRampUp(ctx context.Context, playerID string) (_ *State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.service.startNextRampUp")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("player.id", playerID))

	defer s.lockPlayer(playerID)()

	state, err := s.repo.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}

	nextRamp, ok := state.CurrentPhase.NextRampPhase()
	if !ok {
		return nil, fmt.Errorf(
			"%w: cannot start next ramp-up from phase %s",
			ErrInvalidTransition, state.CurrentPhase,
		)
	}

	state.enterPhase(nextRamp, DateOnly(s.now()))
	state.MaintenanceExtensionRequested = false
	state.NextRampUpRequested = false

	if err := s.repo.Save(ctx, *state); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	s.metrics.CounterPhaseTransitions.Inc()

	return state, nil
}

type SettingsUpdate struct {
	Settings         Settings
	ProgramStartDate *time.Time
}

// UpdateSettings upserts the player's program configuration without touching
// phase or counters. A player with no state yet gets a fresh default row
// carrying the new settings.
func (s *Service) UpdateSettings(ctx context.Context, playerID string, update SettingsUpdate) (_ *State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "program.service.updateSettings")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("player.id", playerID))

	defer s.lockPlayer(playerID)()

	state, err := s.repo.Get(ctx, playerID)
	if errors.Is(err, ErrStateNotFound) {
		fresh := NewDefaultState(playerID, s.now())
		state = &fresh
	} else if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}

	state.Settings = update.Settings.Normalize()
	if update.ProgramStartDate != nil {
		state.ProgramStartDate = DateOnly(*update.ProgramStartDate)
	}

	if err := s.repo.Save(ctx, *state); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	return state, nil
}
