package sessions

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/swinglab/swinglab-backend/internal/telemetry/tracing"
	"github.com/swinglab/swinglab-backend/internal/training"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, session Session) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", session.ID))

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO training_session
				(id, player_id, protocol_id, status, started_at, completed_at)
				VALUES ($1, $2, $3, $4, $5, $6);`,
		session.ID, session.PlayerID, session.ProtocolID,
		session.Status, session.StartedAt, session.CompletedAt,
	)
	return err
}

func (r *Repo) GetSession(ctx context.Context, id string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, player_id, protocol_id, status, started_at, completed_at
			FROM training_session
			WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrSessionNotFound
	}

	var s Session
	if err := rows.Scan(
		&s.ID, &s.PlayerID, &s.ProtocolID, &s.Status, &s.StartedAt, &s.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) GetProtocol(ctx context.Context, id string) (_ *training.Protocol, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.getProtocol")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("protocol.id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, title, category, is_assessment
			FROM protocol
			WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrProtocolNotFound
	}

	var p training.Protocol
	if err := rows.Scan(&p.ID, &p.Title, &p.Category, &p.IsAssessment); err != nil {
		return nil, err
	}
	return &p, nil
}

// Complete marks the session completed. Completing an already completed
// session keeps the original completion time.
func (r *Repo) Complete(ctx context.Context, id string, completedAt time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.complete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE training_session
			SET status = $1, completed_at = COALESCE(completed_at, $2)
			WHERE id = $3;`,
		StatusCompleted, completedAt, id,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}
