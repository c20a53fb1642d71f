package stats

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/swinglab/swinglab-backend/internal/telemetry/tracing"
)

// Repo exposes the two read-only feeds the stats engine consumes.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) ListSessionSummaries(ctx context.Context, playerID string) (_ []SessionSummary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.stats.listSessionSummaries")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("player.id", playerID))

	rows, err := r.db.Query(
		ctx,
		`SELECT
				s.id, s.player_id, s.protocol_id, s.started_at, s.completed_at, s.status,
				COALESCE(p.title, ''), COALESCE(p.category, '')
			FROM training_session s
			LEFT JOIN protocol p ON p.id = s.protocol_id
			WHERE s.player_id = $1;`,
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(
			&s.SessionID, &s.PlayerID, &s.ProtocolID, &s.StartedAt, &s.CompletedAt,
			&s.Status, &s.ProtocolTitle, &s.ProtocolCategory,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (r *Repo) ListMetricEntries(ctx context.Context, playerID string) (_ []MetricEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.stats.listMetricEntries")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("player.id", playerID))

	rows, err := r.db.Query(
		ctx,
		`SELECT
				m.id, m.session_id, m.player_id, m.value_raw, m.recorded_at,
				s.started_at, s.completed_at,
				s.protocol_id, COALESCE(p.title, ''), COALESCE(p.category, ''),
				COALESCE(m.step_id, ''), COALESCE(m.step_title, ''),
				m.metric_key, COALESCE(m.velo_config, ''), COALESCE(m.swing_type, '')
			FROM metric_entry m
			LEFT JOIN training_session s ON s.id = m.session_id
			LEFT JOIN protocol p ON p.id = s.protocol_id
			WHERE m.player_id = $1;`,
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []MetricEntry
	for rows.Next() {
		var e MetricEntry
		// value is stored as text since upstream delivers numbers both as
		// numbers and as strings, the engine coerces on read
		var valueRaw string
		if err := rows.Scan(
			&e.EntryID, &e.SessionID, &e.PlayerID, &valueRaw, &e.RecordedAt,
			&e.SessionStartedAt, &e.SessionCompletedAt,
			&e.ProtocolID, &e.ProtocolTitle, &e.ProtocolCategory,
			&e.StepID, &e.StepTitle,
			&e.MetricKey, &e.VeloConfig, &e.SwingType,
		); err != nil {
			return nil, err
		}
		e.Value = valueRaw
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
