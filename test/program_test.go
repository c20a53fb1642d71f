package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/swinglab/swinglab-backend/internal/training/program"
	"github.com/swinglab/swinglab-backend/internal/training/sessions"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) seedProtocol(ctx context.Context, id, title, category string, isAssessment bool) {
	t := s.T()
	_, err := s.db.Exec(
		ctx,
		`INSERT INTO protocol (id, title, category, is_assessment)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING;`,
		id, title, category, isAssessment,
	)
	require.NoError(t, err)
}

func (s *IntegrationTestSuite) startSession(ctx context.Context, playerID, protocolID string) sessions.Session {
	t := s.T()
	reqBody, err := json.Marshal(map[string]string{
		"playerId":   playerID,
		"protocolId": protocolID,
	})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/sessions", serverEndpoint), bytes.NewBuffer(reqBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-SWINGLAB-TOKEN", testMobileAppSecret)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var session sessions.Session
	require.NoError(t, json.Unmarshal(respBytes, &session))
	return session
}

func (s *IntegrationTestSuite) completeSession(ctx context.Context, sessionID string) sessions.Session {
	t := s.T()
	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/sessions/%s/complete", serverEndpoint, sessionID), nil)
	require.NoError(t, err)
	req.Header.Set("X-SWINGLAB-TOKEN", testMobileAppSecret)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var session sessions.Session
	require.NoError(t, json.Unmarshal(respBytes, &session))
	return session
}

func (s *IntegrationTestSuite) getProgramState(ctx context.Context, t *testing.T, playerID string) (program.State, int) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/program/%s", serverEndpoint, playerID), nil)
	require.NoError(t, err)
	req.Header.Set("X-SWINGLAB-TOKEN", testMobileAppSecret)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var state program.State
	if resp.StatusCode == http.StatusOK {
		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(respBytes, &state))
	}
	return state, resp.StatusCode
}

func (s *IntegrationTestSuite) TestProgram_RampAdvancesAfterSixOverspeedSessions() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	playerID := gofakeit.UUID()
	s.seedProtocol(ctx, "ovs-l1", "Overspeed - Level 1", "overspeed", false)

	for i := 0; i < 5; i++ {
		session := s.startSession(ctx, playerID, "ovs-l1")
		completed := s.completeSession(ctx, session.ID)
		assert.Equal(t, sessions.StatusCompleted, completed.Status)
	}

	state, statusCode := s.getProgramState(ctx, t, playerID)
	require.Equal(t, http.StatusOK, statusCode)
	assert.Equal(t, "RAMP1", state.CurrentPhase.String())
	assert.Equal(t, 5, state.OverspeedSessionsInCurrentPhase)
	assert.Equal(t, 5, state.TotalSessionsCompleted)

	// sixth overspeed session crosses the ramp threshold
	session := s.startSession(ctx, playerID, "ovs-l1")
	s.completeSession(ctx, session.ID)

	state, statusCode = s.getProgramState(ctx, t, playerID)
	require.Equal(t, http.StatusOK, statusCode)
	assert.Equal(t, "PRIMARY1", state.CurrentPhase.String())
	assert.Equal(t, 0, state.OverspeedSessionsInCurrentPhase)
	assert.Equal(t, 6, state.TotalOverspeedSessions)
	assert.Equal(t, 6, state.TotalSessionsCompleted)
}

func (s *IntegrationTestSuite) TestProgram_NonOverspeedSessionsDoNotAdvancePhase() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	playerID := gofakeit.UUID()
	s.seedProtocol(ctx, "gf-l2", "Ground Force Level 2 - Med Ball", "power_mechanics", false)

	for i := 0; i < 10; i++ {
		session := s.startSession(ctx, playerID, "gf-l2")
		s.completeSession(ctx, session.ID)
	}

	state, statusCode := s.getProgramState(ctx, t, playerID)
	require.Equal(t, http.StatusOK, statusCode)
	assert.Equal(t, "RAMP1", state.CurrentPhase.String())
	assert.Equal(t, 10, state.TotalSessionsCompleted)
	assert.Equal(t, 0, state.TotalOverspeedSessions)
	assert.Equal(t, 10, state.GroundForceSessionsByLevel["2"])
}

func (s *IntegrationTestSuite) TestProgram_NextRampUpRejectedOutsideMaintenance() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	playerID := gofakeit.UUID()
	s.seedProtocol(ctx, "ovs-l1", "Overspeed - Level 1", "overspeed", false)

	// player exists in RAMP1 after one session
	session := s.startSession(ctx, playerID, "ovs-l1")
	s.completeSession(ctx, session.ID)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/program/%s/next-ramp-up", serverEndpoint, playerID), nil)
	require.NoError(t, err)
	req.Header.Set("X-SWINGLAB-TOKEN", testMobileAppSecret)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	state, statusCode := s.getProgramState(ctx, t, playerID)
	require.Equal(t, http.StatusOK, statusCode)
	assert.Equal(t, "RAMP1", state.CurrentPhase.String())
	assert.False(t, state.NextRampUpRequested)
}

func (s *IntegrationTestSuite) TestProgram_ResetAndSettings() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	playerID := gofakeit.UUID()
	s.seedProtocol(ctx, "ovs-l1", "Overspeed - Level 1", "overspeed", false)

	session := s.startSession(ctx, playerID, "ovs-l1")
	s.completeSession(ctx, session.ID)

	resetBody := []byte(`{"programStartDate":"2026-03-02","settings":{"trainingDays":["tue","thu","sat"],"sessionsPerWeek":3}}`)
	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/program/%s/reset", serverEndpoint, playerID), bytes.NewBuffer(resetBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-SWINGLAB-TOKEN", testMobileAppSecret)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state, statusCode := s.getProgramState(ctx, t, playerID)
	require.Equal(t, http.StatusOK, statusCode)
	assert.Equal(t, "RAMP1", state.CurrentPhase.String())
	assert.Equal(t, 0, state.TotalSessionsCompleted)
	assert.Equal(t, []string{"tue", "thu", "sat"}, state.Settings.TrainingDays)
	assert.Equal(t, "2026-03-02", state.ProgramStartDate.Format("2006-01-02"))
}

func (s *IntegrationTestSuite) TestSchedule_ProjectsTrainingDays() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	playerID := gofakeit.UUID()
	s.seedProtocol(ctx, "ovs-l1", "Overspeed - Level 1", "overspeed", false)

	session := s.startSession(ctx, playerID, "ovs-l1")
	s.completeSession(ctx, session.ID)

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/schedule/%s?weeks=2", serverEndpoint, playerID), nil)
	require.NoError(t, err)
	req.Header.Set("X-SWINGLAB-TOKEN", testMobileAppSecret)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var days []struct {
		Date          string `json:"date"`
		Weekday       string `json:"weekday"`
		IsTrainingDay bool   `json:"isTrainingDay"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &days))
	assert.Len(t, days, 14)

	trainingDays := 0
	for _, day := range days {
		if day.IsTrainingDay {
			trainingDays++
		}
	}
	assert.Equal(t, 6, trainingDays)
}
