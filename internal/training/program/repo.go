package program

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/swinglab/swinglab-backend/internal/telemetry/tracing"
	"github.com/swinglab/swinglab-backend/internal/training"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrStateNotFound = errors.New("program state not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Get(ctx context.Context, playerID string) (_ *State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.program.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("player.id", playerID))

	rows, err := r.db.Query(
		ctx,
		`SELECT
				player_id, current_phase, phase_start_date, program_start_date,
				total_sessions_completed, total_overspeed_sessions,
				overspeed_sessions_in_current_phase, total_counterweight_sessions,
				ground_force_sessions_by_level, sequencing_sessions_by_level,
				exit_velo_sessions_by_level,
				last_full_assessment_date, last_quick_assessment_date,
				needs_ground_force, needs_sequencing, needs_exit_velo, needs_bat_delivery,
				maintenance_extension_requested, next_ramp_up_requested,
				settings
			FROM program_state
			WHERE player_id = $1;`,
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrStateNotFound
	}

	return scanState(rows)
}

func (r *Repo) Save(ctx context.Context, state State) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.program.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("player.id", state.PlayerID),
		attribute.String("phase", state.CurrentPhase.String()),
	)

	groundForceJson, err := json.Marshal(state.GroundForceSessionsByLevel)
	if err != nil {
		return fmt.Errorf("marshal ground force counters: %w", err)
	}
	sequencingJson, err := json.Marshal(state.SequencingSessionsByLevel)
	if err != nil {
		return fmt.Errorf("marshal sequencing counters: %w", err)
	}
	exitVeloJson, err := json.Marshal(state.ExitVeloSessionsByLevel)
	if err != nil {
		return fmt.Errorf("marshal exit velo counters: %w", err)
	}
	settingsJson, err := json.Marshal(state.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO program_state (
				player_id, current_phase, phase_start_date, program_start_date,
				total_sessions_completed, total_overspeed_sessions,
				overspeed_sessions_in_current_phase, total_counterweight_sessions,
				ground_force_sessions_by_level, sequencing_sessions_by_level,
				exit_velo_sessions_by_level,
				last_full_assessment_date, last_quick_assessment_date,
				needs_ground_force, needs_sequencing, needs_exit_velo, needs_bat_delivery,
				maintenance_extension_requested, next_ramp_up_requested,
				settings
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
			ON CONFLICT (player_id) DO UPDATE SET
				current_phase = EXCLUDED.current_phase,
				phase_start_date = EXCLUDED.phase_start_date,
				program_start_date = EXCLUDED.program_start_date,
				total_sessions_completed = EXCLUDED.total_sessions_completed,
				total_overspeed_sessions = EXCLUDED.total_overspeed_sessions,
				overspeed_sessions_in_current_phase = EXCLUDED.overspeed_sessions_in_current_phase,
				total_counterweight_sessions = EXCLUDED.total_counterweight_sessions,
				ground_force_sessions_by_level = EXCLUDED.ground_force_sessions_by_level,
				sequencing_sessions_by_level = EXCLUDED.sequencing_sessions_by_level,
				exit_velo_sessions_by_level = EXCLUDED.exit_velo_sessions_by_level,
				last_full_assessment_date = EXCLUDED.last_full_assessment_date,
				last_quick_assessment_date = EXCLUDED.last_quick_assessment_date,
				needs_ground_force = EXCLUDED.needs_ground_force,
				needs_sequencing = EXCLUDED.needs_sequencing,
				needs_exit_velo = EXCLUDED.needs_exit_velo,
				needs_bat_delivery = EXCLUDED.needs_bat_delivery,
				maintenance_extension_requested = EXCLUDED.maintenance_extension_requested,
				next_ramp_up_requested = EXCLUDED.next_ramp_up_requested,
				settings = EXCLUDED.settings;`,
		state.PlayerID, state.CurrentPhase.String(), state.PhaseStartDate, state.ProgramStartDate,
		state.TotalSessionsCompleted, state.TotalOverspeedSessions,
		state.OverspeedSessionsInCurrentPhase, state.TotalCounterweightSessions,
		groundForceJson, sequencingJson, exitVeloJson,
		state.LastFullAssessmentDate, state.LastQuickAssessmentDate,
		state.NeedsGroundForce, state.NeedsSequencing, state.NeedsExitVelo, state.NeedsBatDelivery,
		state.MaintenanceExtensionRequested, state.NextRampUpRequested,
		settingsJson,
	)
	return err
}

func (r *Repo) Delete(ctx context.Context, playerID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.program.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("player.id", playerID))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM program_state WHERE player_id = $1;`,
		playerID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrStateNotFound
	}

	return nil
}

func scanState(rows pgx.Rows) (*State, error) {
	var s State
	var phase string
	var groundForceJson, sequencingJson, exitVeloJson, settingsJson []byte
	var lastFull, lastQuick *time.Time
	if err := rows.Scan(
		&s.PlayerID, &phase, &s.PhaseStartDate, &s.ProgramStartDate,
		&s.TotalSessionsCompleted, &s.TotalOverspeedSessions,
		&s.OverspeedSessionsInCurrentPhase, &s.TotalCounterweightSessions,
		&groundForceJson, &sequencingJson, &exitVeloJson,
		&lastFull, &lastQuick,
		&s.NeedsGroundForce, &s.NeedsSequencing, &s.NeedsExitVelo, &s.NeedsBatDelivery,
		&s.MaintenanceExtensionRequested, &s.NextRampUpRequested,
		&settingsJson,
	); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	s.CurrentPhase = training.Phase(phase)
	if !s.CurrentPhase.IsValid() {
		s.CurrentPhase = training.PhaseRamp1
	}
	s.PhaseStartDate = DateOnly(s.PhaseStartDate)
	s.ProgramStartDate = DateOnly(s.ProgramStartDate)
	if lastFull != nil {
		d := DateOnly(*lastFull)
		s.LastFullAssessmentDate = &d
	}
	if lastQuick != nil {
		d := DateOnly(*lastQuick)
		s.LastQuickAssessmentDate = &d
	}

	s.GroundForceSessionsByLevel = unmarshalCounters(groundForceJson)
	s.SequencingSessionsByLevel = unmarshalCounters(sequencingJson)
	s.ExitVeloSessionsByLevel = unmarshalCounters(exitVeloJson)

	if err := json.Unmarshal(settingsJson, &s.Settings); err != nil {
		s.Settings = NewDefaultState(s.PlayerID, s.ProgramStartDate).Settings
	}
	s.Settings = s.Settings.Normalize()

	return &s, nil
}

// unmarshalCounters restores a level counter map, coercing malformed or
// missing data to an empty map and dropping non-positive entries.
func unmarshalCounters(raw []byte) map[string]int {
	counters := map[string]int{}
	if len(raw) == 0 {
		return counters
	}
	if err := json.Unmarshal(raw, &counters); err != nil {
		return map[string]int{}
	}
	for level, count := range counters {
		if count <= 0 {
			delete(counters, level)
		}
	}
	return counters
}
