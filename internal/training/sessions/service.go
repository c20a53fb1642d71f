package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/swinglab/swinglab-backend/internal/telemetry/tracing"
	"github.com/swinglab/swinglab-backend/internal/training"
	"github.com/swinglab/swinglab-backend/internal/training/program"
)

type sessionsRepo interface {
	Add(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	GetProtocol(ctx context.Context, id string) (*training.Protocol, error)
	Complete(ctx context.Context, id string, completedAt time.Time) error
}

type programUpdater interface {
	ApplyCompletedSession(
		ctx context.Context,
		playerID string,
		protocol training.Protocol,
		completedAt time.Time,
	) (*program.State, error)
}

type statsInvalidator interface {
	InvalidatePlayer(playerID string)
}

type Service struct {
	repo       sessionsRepo
	program    programUpdater
	statsCache statsInvalidator
	now        func() time.Time
}

func NewService(repo sessionsRepo, program programUpdater, statsCache statsInvalidator) *Service {
	return &Service{
		repo:       repo,
		program:    program,
		statsCache: statsCache,
		now:        time.Now,
	}
}

// Start creates a new in-progress session for the player.
func (s *Service) Start(ctx context.Context, playerID, protocolID string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sessions.service.start")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("player.id", playerID),
		attribute.String("protocol.id", protocolID),
	)

	if _, err := s.repo.GetProtocol(ctx, protocolID); err != nil {
		return nil, err
	}

	startedAt := s.now()
	session := Session{
		ID:         uuid.NewString(),
		PlayerID:   playerID,
		ProtocolID: protocolID,
		Status:     StatusInProgress,
		StartedAt:  &startedAt,
	}
	if err := s.repo.Add(ctx, session); err != nil {
		return nil, fmt.Errorf("add session: %w", err)
	}
	return &session, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sessions.service.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", sessionID))

	return s.repo.GetSession(ctx, sessionID)
}

// Complete marks the session completed and advances the player's program
// state. The program update is best effort: a missing protocol or a failing
// state write is logged and swallowed, completing the session is the primary
// action and must not be blocked by its side effects.
func (s *Service) Complete(ctx context.Context, sessionID string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sessions.service.complete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", sessionID))

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	completedAt := s.now()
	if err := s.repo.Complete(ctx, sessionID, completedAt); err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}

	session.Status = StatusCompleted
	if session.CompletedAt == nil {
		session.CompletedAt = &completedAt
	}

	s.applyToProgram(ctx, session)
	s.statsCache.InvalidatePlayer(session.PlayerID)

	return session, nil
}

func (s *Service) applyToProgram(ctx context.Context, session *Session) {
	protocol, err := s.repo.GetProtocol(ctx, session.ProtocolID)
	if errors.Is(err, ErrProtocolNotFound) {
		log.Warnf(
			"session %s completed with unknown protocol %s, program state not updated",
			session.ID, session.ProtocolID,
		)
		return
	}
	if err != nil {
		log.Errorf("get protocol %s: %s, program state not updated", session.ProtocolID, err)
		return
	}

	if _, err := s.program.ApplyCompletedSession(
		ctx, session.PlayerID, *protocol, *session.CompletedAt,
	); err != nil {
		log.Errorf("apply completed session %s to program state: %s", session.ID, err)
	}
}
