// Package service wires the orchestration components together and owns the
// turn pipeline: role gate, cache lookup, context fetch, supervisor loop,
// assembly, cache write and context append.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aquasense/orchestrator/internal/assembler"
	"github.com/aquasense/orchestrator/internal/cache"
	"github.com/aquasense/orchestrator/internal/classifier"
	"github.com/aquasense/orchestrator/internal/config"
	"github.com/aquasense/orchestrator/internal/contextstore"
	"github.com/aquasense/orchestrator/internal/domain"
	"github.com/aquasense/orchestrator/internal/health"
	"github.com/aquasense/orchestrator/internal/metrics"
	"github.com/aquasense/orchestrator/internal/scoring"
	"github.com/aquasense/orchestrator/internal/store"
	"github.com/aquasense/orchestrator/internal/supervisor"
	"github.com/aquasense/orchestrator/internal/tools"
	"github.com/aquasense/orchestrator/policy"
)

// Service is the query orchestration facade used by the transport layer.
type Service struct {
	cfg        *config.Config
	store      store.Store
	supervisor *supervisor.Supervisor
	assembler  *assembler.Assembler
	cache      *cache.Cache
	contexts   *contextstore.Store
	health     *health.Monitor
	gate       *policy.Engine
	log        zerolog.Logger
}

// New creates the service.
func New(
	cfg *config.Config,
	st store.Store,
	sup *supervisor.Supervisor,
	asm *assembler.Assembler,
	answerCache *cache.Cache,
	contexts *contextstore.Store,
	monitor *health.Monitor,
	gate *policy.Engine,
	log zerolog.Logger,
) *Service {
	return &Service{
		cfg:        cfg,
		store:      st,
		supervisor: sup,
		assembler:  asm,
		cache:      answerCache,
		contexts:   contexts,
		health:     monitor,
		gate:       gate,
		log:        log.With().Str("component", "service").Logger(),
	}
}

// HandleQuery runs one full query turn and returns the answer envelope.
func (s *Service) HandleQuery(ctx context.Context, q domain.Query) (domain.AnswerEnvelope, error) {
	start := time.Now()

	if strings.TrimSpace(q.Text) == "" {
		return domain.AnswerEnvelope{}, domain.NewValidationError("query text is required")
	}
	if q.Role == "" {
		q.Role = domain.RoleGuest
	}

	// Role gate before the loop starts. An explicit ask for a score
	// explanation by an unprivileged role is refused outright; a mere
	// score-dependent filter is dropped so the rest of the query still
	// answers.
	if classifier.WantsScoreExplanation(q) {
		decision, err := s.gate.Evaluate(ctx, policy.Input{Role: string(q.Role), ToolName: tools.ScoreExplainName})
		if err != nil {
			return domain.AnswerEnvelope{}, fmt.Errorf("policy evaluation failed: %w", err)
		}
		if decision != policy.DecisionAllow {
			return domain.AnswerEnvelope{}, domain.NewPermissionError("role %s may not request score explanations", q.Role)
		}
	}
	if q.Filters.PriorityLevel != "" {
		decision, err := s.gate.Evaluate(ctx, policy.Input{
			Role:    string(q.Role),
			Filters: map[string]any{"priority_level": q.Filters.PriorityLevel},
		})
		if err != nil {
			return domain.AnswerEnvelope{}, fmt.Errorf("policy evaluation failed: %w", err)
		}
		if decision != policy.DecisionAllow {
			s.log.Debug().Str("role", string(q.Role)).Msg("dropping score-dependent filter for unprivileged role")
			q.Filters.PriorityLevel = ""
		}
	}

	// A referenced entity must exist before any tool work starts.
	if q.Filters.EntityID != 0 {
		wb, err := s.store.GetWaterBody(ctx, q.Filters.EntityID)
		if err != nil {
			return domain.AnswerEnvelope{}, fmt.Errorf("entity lookup failed: %w", err)
		}
		if wb == nil {
			return domain.AnswerEnvelope{}, domain.NewNotFoundError("water body %d not found", q.Filters.EntityID)
		}
	}

	fp := cache.ComputeFingerprint(q)
	if envelope, ok := s.cache.Get(fp); ok {
		metrics.CacheHits.Inc()
		s.log.Debug().Str("fingerprint", string(fp)[:12]).Msg("cache hit")
		return envelope, nil
	}
	metrics.CacheMisses.Inc()

	tail := s.contexts.Tail(q.ConversationID)
	turnID := "turn_" + uuid.New().String()[:8]

	turnCtx, cancel := context.WithTimeout(ctx, s.cfg.TurnDeadline)
	defer cancel()

	outcome, err := s.supervisor.RunTurn(turnCtx, turnID, q, tail)
	if err != nil {
		metrics.TurnsTotal.WithLabelValues("error").Inc()
		return domain.AnswerEnvelope{}, err
	}

	// Assembly runs on the request context, not the turn deadline: a turn
	// that timed out mid-loop still gets its best-effort partial answer.
	envelope, err := s.assembler.Assemble(ctx, q, outcome.Evidence, outcome.Partial)
	if err != nil {
		metrics.TurnsTotal.WithLabelValues("error").Inc()
		return domain.AnswerEnvelope{}, err
	}

	// Partial answers are not cached: they would pin a degraded answer for
	// the full TTL.
	if !envelope.Partial {
		s.cache.Put(fp, q, envelope, s.cfg.CacheTTL)
	}
	s.contexts.Append(q.ConversationID, domain.ConversationTurn{
		Query:     q,
		Envelope:  envelope,
		CreatedAt: time.Now(),
	})

	outcomeLabel := "ok"
	if envelope.Partial {
		outcomeLabel = "partial"
	}
	metrics.TurnsTotal.WithLabelValues(outcomeLabel).Inc()
	metrics.TurnDuration.Observe(time.Since(start).Seconds())

	return envelope, nil
}

// ExplainEntity builds a score-explanation query for one entity and runs it
// through the same turn pipeline.
func (s *Service) ExplainEntity(ctx context.Context, entityID int64, role domain.Role, conversationID string) (domain.AnswerEnvelope, error) {
	wb, err := s.store.GetWaterBody(ctx, entityID)
	if err != nil {
		return domain.AnswerEnvelope{}, fmt.Errorf("entity lookup failed: %w", err)
	}
	if wb == nil {
		return domain.AnswerEnvelope{}, domain.NewNotFoundError("water body %d not found", entityID)
	}

	q := domain.Query{
		Text:           fmt.Sprintf("Explain the priority score and current condition of %s.", wb.Name),
		Role:           role,
		Filters:        domain.Filters{EntityID: entityID},
		ConversationID: conversationID,
	}
	return s.HandleQuery(ctx, q)
}

// RescoreEntity recomputes a record's derived priority from its stored
// attributes, persists it, and invalidates every cached answer that
// depended on the record. Returns the updated record and the number of
// cache entries removed.
func (s *Service) RescoreEntity(ctx context.Context, entityID int64) (*domain.WaterBody, int, error) {
	wb, err := s.store.GetWaterBody(ctx, entityID)
	if err != nil {
		return nil, 0, fmt.Errorf("entity lookup failed: %w", err)
	}
	if wb == nil {
		return nil, 0, domain.NewNotFoundError("water body %d not found", entityID)
	}

	ex := scoring.Explain(*wb)
	if err := s.store.UpdatePriority(ctx, entityID, ex.Score, ex.Level); err != nil {
		return nil, 0, fmt.Errorf("failed to persist priority: %w", err)
	}
	wb.PriorityScore = ex.Score
	wb.PriorityLevel = ex.Level

	recordSource := fmt.Sprintf("water_body:%d", entityID)
	documentPrefix := fmt.Sprintf("document:%d/", entityID)
	removed := s.cache.Invalidate(func(q domain.Query, envelope domain.AnswerEnvelope) bool {
		if q.Filters.EntityID == entityID {
			return true
		}
		for _, src := range envelope.Sources {
			if src.ID == recordSource || strings.HasPrefix(src.ID, documentPrefix) {
				return true
			}
		}
		return false
	})

	s.log.Info().Int64("entity_id", entityID).Float64("score", ex.Score).Int("cache_removed", removed).Msg("entity rescored")
	return wb, removed, nil
}

// Health returns the monitor's last snapshot.
func (s *Service) Health() health.Snapshot {
	return s.health.Snapshot()
}

// ConversationHistory returns the stored tail for a conversation.
func (s *Service) ConversationHistory(conversationID string) []domain.ConversationTurn {
	return s.contexts.Tail(conversationID)
}

// TurnEvents returns the diagnostic event log for one turn.
func (s *Service) TurnEvents(ctx context.Context, turnID string, limit int) ([]domain.TurnEvent, error) {
	return s.store.GetEvents(ctx, turnID, limit)
}

// Shutdown clears the shared in-process state. The store is closed by its
// owner.
func (s *Service) Shutdown() {
	s.cache.Clear()
	s.contexts.Clear()
}
