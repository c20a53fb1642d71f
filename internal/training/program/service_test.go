package program

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/swinglab/swinglab-backend/internal/telemetry/metrics"
	"github.com/swinglab/swinglab-backend/internal/training"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService() (*Service, *repoMock) {
	repo := NewMockRepo()
	service := NewService(repo, metrics.NewTestManager())
	service.now = func() time.Time {
		return time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	}
	return service, repo
}

func TestService_ApplyCompletedSession_CreatesStateOnFirstSession(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService()

	_, err := repo.Get(ctx, "player1")
	require.ErrorIs(t, err, ErrStateNotFound)

	state, err := service.ApplyCompletedSession(
		ctx, "player1", overspeedProtocol(), day(2026, 5, 1),
	)
	require.NoError(t, err)
	assert.Equal(t, training.PhaseRamp1, state.CurrentPhase)
	assert.Equal(t, 1, state.TotalSessionsCompleted)
	assert.Equal(t, 1, state.OverspeedSessionsInCurrentPhase)
	assert.Equal(t, day(2026, 5, 1), state.ProgramStartDate)

	persisted, err := repo.Get(ctx, "player1")
	require.NoError(t, err)
	assert.Equal(t, *state, *persisted)
}

func TestService_ApplyCompletedSession_SerializesWritesPerPlayer(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService()

	const sessions = 50
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := service.ApplyCompletedSession(
				ctx, "player1",
				training.Protocol{Title: "Counterweight Work", Category: "Counterweight"},
				day(2026, 5, 1).AddDate(0, 0, i),
			)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	state, err := repo.Get(ctx, "player1")
	require.NoError(t, err)
	// no lost updates
	assert.Equal(t, sessions, state.TotalSessionsCompleted)
	assert.Equal(t, sessions, state.TotalCounterweightSessions)
}

func TestService_Reset(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	state, err := service.ApplyCompletedSession(
		ctx, "player1", overspeedProtocol(), day(2026, 4, 1),
	)
	require.NoError(t, err)
	require.Equal(t, 1, state.TotalSessionsCompleted)

	// default reset: today, default settings
	state, err = service.Reset(ctx, "player1", ResetParams{})
	require.NoError(t, err)
	assert.Equal(t, training.PhaseRamp1, state.CurrentPhase)
	assert.Equal(t, 0, state.TotalSessionsCompleted)
	assert.Equal(t, day(2026, 5, 10), state.ProgramStartDate)
	assert.Equal(t, DefaultTrainingDays, state.Settings.TrainingDays)

	// reset with explicit start date and settings
	state, err = service.Reset(ctx, "player1", ResetParams{
		ProgramStartDate: day(2026, 3, 15),
		Settings: &Settings{
			TrainingDays:    []string{"tuesday", "thu", "thu", "notaday"},
			SessionsPerWeek: 4,
			SessionMinutes:  45,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, day(2026, 3, 15), state.ProgramStartDate)
	assert.Equal(t, []string{"tue", "thu"}, state.Settings.TrainingDays)
	assert.Equal(t, 4, state.Settings.SessionsPerWeek)
}

func TestService_RequestMaintenanceExtension(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService()

	_, err := service.RequestMaintenanceExtension(ctx, "ghost")
	assert.ErrorIs(t, err, ErrStateNotFound)

	seed := NewDefaultState("player1", day(2026, 1, 1))
	seed.CurrentPhase = training.PhaseMaint1
	seed.NextRampUpRequested = true
	require.NoError(t, repo.Save(ctx, seed))

	state, err := service.RequestMaintenanceExtension(ctx, "player1")
	require.NoError(t, err)
	assert.True(t, state.MaintenanceExtensionRequested)
	assert.False(t, state.NextRampUpRequested)
	assert.Equal(t, training.PhaseMaint1, state.CurrentPhase)
}

func TestService_StartNextRampUp(t *testing.T) {
	testCases := []struct {
		name          string
		phase         training.Phase
		wantPhase     training.Phase
		wantErrInvTra bool
	}{
		{name: "maint1 to ramp2", phase: training.PhaseMaint1, wantPhase: training.PhaseRamp2},
		{name: "maint2 to ramp3", phase: training.PhaseMaint2, wantPhase: training.PhaseRamp3},
		{name: "maint3 is terminal", phase: training.PhaseMaint3, wantErrInvTra: true},
		{name: "ramp1 invalid", phase: training.PhaseRamp1, wantErrInvTra: true},
		{name: "primary1 invalid", phase: training.PhasePrimary1, wantErrInvTra: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			service, repo := newTestService()

			seed := NewDefaultState("player1", day(2026, 1, 1))
			seed.CurrentPhase = tc.phase
			seed.PhaseStartDate = day(2026, 2, 1)
			seed.OverspeedSessionsInCurrentPhase = 9
			seed.MaintenanceExtensionRequested = true
			require.NoError(t, repo.Save(ctx, seed))

			state, err := service.StartNextRampUp(ctx, "player1")
			if tc.wantErrInvTra {
				require.ErrorIs(t, err, ErrInvalidTransition)
				// state untouched
				persisted, getErr := repo.Get(ctx, "player1")
				require.NoError(t, getErr)
				assert.Equal(t, seed, *persisted)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantPhase, state.CurrentPhase)
			assert.Equal(t, day(2026, 5, 10), state.PhaseStartDate)
			assert.Equal(t, 0, state.OverspeedSessionsInCurrentPhase)
			assert.False(t, state.MaintenanceExtensionRequested)
			assert.False(t, state.NextRampUpRequested)
		})
	}
}

func TestService_UpdateSettings(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService()

	// creates a default row for unknown players
	startDate := day(2026, 2, 2)
	state, err := service.UpdateSettings(ctx, "player1", SettingsUpdate{
		Settings: Settings{
			TrainingDays:    []string{"Mon", "WED", "mon"},
			SessionsPerWeek: 2,
			SessionMinutes:  20,
			InSeason:        true,
			GameDays:        []string{"saturday", "sun"},
		},
		ProgramStartDate: &startDate,
	})
	require.NoError(t, err)
	assert.Equal(t, training.PhaseRamp1, state.CurrentPhase)
	assert.Equal(t, []string{"mon", "wed"}, state.Settings.TrainingDays)
	assert.Equal(t, []string{"sat", "sun"}, state.Settings.GameDays)
	assert.True(t, state.Settings.InSeason)
	assert.Equal(t, startDate, state.ProgramStartDate)

	// phase and counters survive a settings update
	seed := NewDefaultState("player2", day(2026, 1, 1))
	seed.CurrentPhase = training.PhasePrimary3
	seed.TotalSessionsCompleted = 77
	require.NoError(t, repo.Save(ctx, seed))

	state, err = service.UpdateSettings(ctx, "player2", SettingsUpdate{
		Settings: Settings{TrainingDays: []string{}},
	})
	require.NoError(t, err)
	assert.Equal(t, training.PhasePrimary3, state.CurrentPhase)
	assert.Equal(t, 77, state.TotalSessionsCompleted)
	assert.Equal(t, DefaultTrainingDays, state.Settings.TrainingDays)
}
