package stats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/swinglab/swinglab-backend/internal/telemetry/tracing"
)

const (
	megabyte         = 1024 * 1024
	statsCacheSize   = 20 * megabyte
	statsCacheExpire = 60 * 10 // seconds
)

type statsRepo interface {
	ListSessionSummaries(ctx context.Context, playerID string) ([]SessionSummary, error)
	ListMetricEntries(ctx context.Context, playerID string) ([]MetricEntry, error)
}

// Service recomputes player stats on demand and keeps a short-lived cached
// copy per player. Session completions invalidate the player's entry, so a
// stale report never outlives new data by more than the cache miss.
type Service struct {
	repo  statsRepo
	cache *freecache.Cache
}

func NewService(repo statsRepo) *Service {
	return &Service{
		repo:  repo,
		cache: freecache.NewCache(statsCacheSize),
	}
}

func (s *Service) GetPlayerStats(ctx context.Context, playerID string) (_ *PlayerStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "stats.service.getPlayerStats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("player.id", playerID))

	cacheKey := []byte(playerID)
	if cachedBytes, err := s.cache.Get(cacheKey); err == nil {
		var cached PlayerStats
		if err := json.Unmarshal(cachedBytes, &cached); err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &cached, nil
		}
		log.Errorf("failed to unmarshal cached stats for player %s: %s", playerID, err)
	}

	sessions, err := s.repo.ListSessionSummaries(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("list session summaries: %w", err)
	}
	metricEntries, err := s.repo.ListMetricEntries(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("list metric entries: %w", err)
	}

	playerStats := BuildPlayerStats(playerID, sessions, metricEntries)

	if statsJson, err := json.Marshal(playerStats); err == nil {
		if err := s.cache.Set(cacheKey, statsJson, statsCacheExpire); err != nil {
			log.Errorf("failed to cache stats for player %s: %s", playerID, err)
		}
	}

	return &playerStats, nil
}

// InvalidatePlayer drops the cached report so the next read recomputes it.
func (s *Service) InvalidatePlayer(playerID string) {
	s.cache.Del([]byte(playerID))
}
