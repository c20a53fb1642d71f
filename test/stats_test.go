package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/swinglab/swinglab-backend/internal/training/stats"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) seedCompletedSession(ctx context.Context, playerID, protocolID string, completedAt time.Time) string {
	t := s.T()
	sessionID := uuid.NewString()
	startedAt := completedAt.Add(-30 * time.Minute)
	_, err := s.db.Exec(
		ctx,
		`INSERT INTO training_session (id, player_id, protocol_id, status, started_at, completed_at)
			VALUES ($1, $2, $3, 'completed', $4, $5);`,
		sessionID, playerID, protocolID, startedAt, completedAt,
	)
	require.NoError(t, err)
	return sessionID
}

func (s *IntegrationTestSuite) seedMetricEntry(
	ctx context.Context,
	sessionID, playerID, metricKey, valueRaw, veloConfig, swingType, stepTitle string,
	recordedAt time.Time,
) {
	t := s.T()
	_, err := s.db.Exec(
		ctx,
		`INSERT INTO metric_entry
				(id, session_id, player_id, metric_key, value_raw, velo_config, swing_type, step_id, step_title, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, '', $8, $9);`,
		uuid.NewString(), sessionID, playerID, metricKey, valueRaw, veloConfig, swingType, stepTitle, recordedAt,
	)
	require.NoError(t, err)
}

func (s *IntegrationTestSuite) getPlayerStats(ctx context.Context, playerID string) stats.PlayerStats {
	t := s.T()
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/stats/%s", serverEndpoint, playerID), nil)
	require.NoError(t, err)
	req.Header.Set("X-SWINGLAB-TOKEN", testMobileAppSecret)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var playerStats stats.PlayerStats
	require.NoError(t, json.Unmarshal(respBytes, &playerStats))
	return playerStats
}

func (s *IntegrationTestSuite) TestStats_GainsFromGameBatAssessments() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	playerID := gofakeit.UUID()
	s.seedProtocol(ctx, "assess-full", "Full Assessment - Game Bat", "assessments", true)

	day1 := time.Date(2026, 4, 6, 17, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 28)

	session1 := s.seedCompletedSession(ctx, playerID, "assess-full", day1)
	session2 := s.seedCompletedSession(ctx, playerID, "assess-full", day2)

	s.seedMetricEntry(ctx, session1, playerID, "max_bat_speed", "60", "game_bat", "dominant", "", day1)
	s.seedMetricEntry(ctx, session2, playerID, "max_bat_speed", "66", "game_bat", "dominant", "", day2)

	playerStats := s.getPlayerStats(ctx, playerID)
	assert.Equal(t, playerID, playerStats.PlayerID)

	require.NotNil(t, playerStats.PersonalBest.BatSpeedMph)
	assert.InDelta(t, 66.0, *playerStats.PersonalBest.BatSpeedMph, 0.001)

	require.NotNil(t, playerStats.Gains.BatSpeed)
	assert.InDelta(t, 60.0, playerStats.Gains.BatSpeed.BaselineMph, 0.001)
	assert.InDelta(t, 66.0, playerStats.Gains.BatSpeed.CurrentMph, 0.001)
	assert.InDelta(t, 6.0, playerStats.Gains.BatSpeed.DeltaMph, 0.001)
	assert.InDelta(t, 10.0, playerStats.Gains.BatSpeed.DeltaPercent, 0.001)

	assert.Equal(t, 2, playerStats.SessionCounts.Total)
	assert.Equal(t, 2, playerStats.SessionCounts.ByCategory["assessments"])
}

func (s *IntegrationTestSuite) TestStats_ConfigBySideAndCacheInvalidation() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	playerID := gofakeit.UUID()
	s.seedProtocol(ctx, "ovs-tracked", "Overspeed Tracked - Level 2", "overspeed", false)

	day1 := time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)
	session1 := s.seedCompletedSession(ctx, playerID, "ovs-tracked", day1)
	s.seedMetricEntry(ctx, session1, playerID, "bat_speed", "71.5", "green_sleeve", "dominant", "Happy Gilmore - Step 2", day1)
	s.seedMetricEntry(ctx, session1, playerID, "bat_speed", "64.2", "green_sleeve", "non_dominant", "Happy Gilmore - Step 3", day1)

	playerStats := s.getPlayerStats(ctx, playerID)

	greenSleeve := playerStats.ConfigBySide[stats.ConfigGreenSleeve]
	require.NotNil(t, greenSleeve.Dominant)
	assert.InDelta(t, 71.5, *greenSleeve.Dominant, 0.001)
	require.NotNil(t, greenSleeve.NonDominant)
	assert.InDelta(t, 64.2, *greenSleeve.NonDominant, 0.001)

	fastest := playerStats.FastestDrills[stats.ConfigGreenSleeve]
	require.NotNil(t, fastest)
	assert.Equal(t, "Happy Gilmore", fastest.Name)
	assert.InDelta(t, 71.5, fastest.SpeedMph, 0.001)

	// stats are cached per player; completing a session through the API
	// invalidates the cache so a new entry shows up on the next read
	day2 := day1.AddDate(0, 0, 2)
	session2ID := s.seedCompletedSession(ctx, playerID, "ovs-tracked", day2)
	s.seedMetricEntry(ctx, session2ID, playerID, "bat_speed", "73.0", "green_sleeve", "dominant", "Happy Gilmore - Step 2", day2)

	// cached read still shows the old maximum
	cachedStats := s.getPlayerStats(ctx, playerID)
	require.NotNil(t, cachedStats.ConfigBySide[stats.ConfigGreenSleeve].Dominant)
	assert.InDelta(t, 71.5, *cachedStats.ConfigBySide[stats.ConfigGreenSleeve].Dominant, 0.001)

	// a session completed through the API busts the cache
	apiSession := s.startSession(ctx, playerID, "ovs-tracked")
	s.completeSession(ctx, apiSession.ID)

	freshStats := s.getPlayerStats(ctx, playerID)
	require.NotNil(t, freshStats.ConfigBySide[stats.ConfigGreenSleeve].Dominant)
	assert.InDelta(t, 73.0, *freshStats.ConfigBySide[stats.ConfigGreenSleeve].Dominant, 0.001)
}
