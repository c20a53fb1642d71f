//go:build integration_test || all_tests

package program

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swinglab/swinglab-backend/internal/db"
	"github.com/swinglab/swinglab-backend/internal/training"
)

func testRepoSetup(t *testing.T) (*Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postgres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "swinglab",
		TracingEnabled: false,
	})
	require.NoError(t, err)

	return NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

func TestRepo_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	playerID := gofakeit.UUID()
	state := NewDefaultState(playerID, time.Now())
	state.CurrentPhase = training.PhasePrimary2
	state.TotalSessionsCompleted = 42
	state.TotalOverspeedSessions = 30
	state.OverspeedSessionsInCurrentPhase = 12
	state.TotalCounterweightSessions = 5
	state.GroundForceSessionsByLevel = map[string]int{"1": 4, "3": 2}
	state.SequencingSessionsByLevel = map[string]int{"2": 1}
	full := DateOnly(time.Now().AddDate(0, 0, -20))
	state.LastFullAssessmentDate = &full
	state.NeedsSequencing = true
	state.Settings.TrainingDays = []string{"tue", "thu"}
	state.Settings.InSeason = true
	state.Settings.GameDays = []string{"sat"}

	require.NoError(t, repo.Save(ctx, state))
	defer func() {
		require.NoError(t, repo.Delete(ctx, playerID))
	}()

	got, err := repo.Get(ctx, playerID)
	require.NoError(t, err)
	assert.Equal(t, state, *got)

	// save is an upsert
	state.TotalSessionsCompleted = 43
	state.OverspeedSessionsInCurrentPhase = 0
	state.CurrentPhase = training.PhaseMaint2
	require.NoError(t, repo.Save(ctx, state))

	got, err = repo.Get(ctx, playerID)
	require.NoError(t, err)
	assert.Equal(t, state, *got)
}

func TestRepo_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	_, err := repo.Get(ctx, gofakeit.UUID())
	assert.ErrorIs(t, err, ErrStateNotFound)

	err = repo.Delete(ctx, gofakeit.UUID())
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRepo_EmptyCountersRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	playerID := gofakeit.UUID()
	state := NewDefaultState(playerID, time.Now())

	require.NoError(t, repo.Save(ctx, state))
	defer func() {
		require.NoError(t, repo.Delete(ctx, playerID))
	}()

	got, err := repo.Get(ctx, playerID)
	require.NoError(t, err)
	assert.NotNil(t, got.GroundForceSessionsByLevel)
	assert.NotNil(t, got.SequencingSessionsByLevel)
	assert.NotNil(t, got.ExitVeloSessionsByLevel)
	assert.Equal(t, state, *got)
}
