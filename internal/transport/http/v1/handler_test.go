package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aquasense/orchestrator/internal/answer"
	"github.com/aquasense/orchestrator/internal/assembler"
	"github.com/aquasense/orchestrator/internal/cache"
	"github.com/aquasense/orchestrator/internal/config"
	"github.com/aquasense/orchestrator/internal/contextstore"
	"github.com/aquasense/orchestrator/internal/dispatch"
	"github.com/aquasense/orchestrator/internal/domain"
	"github.com/aquasense/orchestrator/internal/health"
	"github.com/aquasense/orchestrator/internal/search"
	"github.com/aquasense/orchestrator/internal/service"
	"github.com/aquasense/orchestrator/internal/store"
	"github.com/aquasense/orchestrator/internal/supervisor"
	"github.com/aquasense/orchestrator/internal/tools"
	"github.com/aquasense/orchestrator/policy"
	"github.com/aquasense/orchestrator/tests/helpers"
)

// countingEventLog counts writes so tests can assert a request did no tool work.
type countingEventLog struct {
	store.EventLog
	created int
}

func (c *countingEventLog) CreateEvent(ctx context.Context, ev *domain.TurnEvent) error {
	c.created++
	return c.EventLog.CreateEvent(ctx, ev)
}

type testEnv struct {
	server    *echo.Echo
	generator *answer.MockGenerator
	events    *countingEventLog
}

func newTestEnv(t *testing.T, probe bool) *testEnv {
	t.Helper()

	cfg := &config.Config{
		IterationBudget:     5,
		TurnDeadline:        5 * time.Second,
		CacheTTL:            time.Minute,
		ContextWindow:       10,
		StructuredResultCap: 10,
	}

	db := helpers.NewTestSQLiteStore(t)
	semantic := search.NewKeywordSemanticSearcher(db)
	external := search.NewStaticExternalSearcher()
	gen := answer.NewMockGenerator()

	registry := tools.NewRegistry()
	registry.MustRegister(tools.NewStructuredSearchTool(db, cfg.StructuredResultCap))
	registry.MustRegister(tools.NewDocumentContentTool(db, semantic))
	registry.MustRegister(tools.NewScoreExplainTool(db))
	registry.MustRegister(tools.NewExternalLookupTool(external))

	gate, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	log := zerolog.Nop()
	dispatcher := dispatch.New(registry, gate, false, log)
	events := &countingEventLog{EventLog: db}
	sup := supervisor.New(dispatcher, events, cfg.IterationBudget, log)
	asm := assembler.New(gen, log)
	monitor := health.NewMonitor(gen, registry, time.Minute, log)
	if probe {
		monitor.Probe(context.Background())
	}

	svc := service.New(cfg, db, sup, asm, cache.New(log), contextstore.New(cfg.ContextWindow), monitor, gate, log)

	e := echo.New()
	NewHandler(svc).RegisterRoutes(e)
	return &testEnv{server: e, generator: gen, events: events}
}

func (env *testEnv) do(method, path, role, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if role != "" {
		req.Header.Set(RoleHeader, role)
	}
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) domain.AnswerEnvelope {
	t.Helper()
	var env domain.AnswerEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return env
}

func TestQueryStructuredScenario(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(http.MethodPost, "/v1/query", "analyst",
		`{"query":"Which water bodies in the north are high priority?","filters":{"region":"north"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Partial)
	assert.Greater(t, envelope.Confidence, 0.0)
	assert.NotEmpty(t, envelope.Sources)
	assert.Contains(t, envelope.ToolsUsed, tools.StructuredSearchName)

	// Privileged roles see the derived priority fields in record citations.
	assert.Contains(t, envelope.Sources[0].Excerpt, "priority")
}

func TestQueryEmptyTextRejected(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(http.MethodPost, "/v1/query", "analyst", `{"query":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(domain.CodeValidation), body.Code)
}

func TestQueryGuestScoreExplanationForbidden(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(http.MethodPost, "/v1/query", "guest",
		`{"query":"Explain the priority score of Alder Creek","filters":{"entity_id":1}}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body errorBody
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(domain.CodePermission), body.Code)
}

func TestQueryGuestPriorityFilterDropped(t *testing.T) {
	env := newTestEnv(t, true)

	// The score-dependent filter is silently omitted for guests; the query
	// still answers against the unfiltered records.
	rec := env.do(http.MethodPost, "/v1/query", "guest",
		`{"query":"list the water bodies","filters":{"priority_level":"high"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.NotEmpty(t, envelope.Sources)

	// Score-dependent fields stay out of guest responses entirely.
	for _, src := range envelope.Sources {
		assert.NotContains(t, src.Excerpt, "priority")
	}
}

func TestQueryUnknownEntityNotFound(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(http.MethodPost, "/v1/query", "analyst",
		`{"query":"tell me about this one","filters":{"entity_id":9999}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryGeneratorDownReturns503AndIsNotCached(t *testing.T) {
	env := newTestEnv(t, true)
	body := `{"query":"Which water bodies in the north are high priority?","filters":{"region":"north"}}`

	env.generator.Down = true
	rec := env.do(http.MethodPost, "/v1/query", "analyst", body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var errResp errorBody
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, string(domain.CodeDependencyUnavailable), errResp.Code)

	// The failed turn left nothing behind; the same query succeeds once the
	// service recovers.
	env.generator.Down = false
	rec = env.do(http.MethodPost, "/v1/query", "analyst", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Partial)
}

func TestQueryCachedRepeat(t *testing.T) {
	env := newTestEnv(t, true)
	body := `{"query":"Which water bodies in the north are high priority?","filters":{"region":"north"}}`

	first := env.do(http.MethodPost, "/v1/query", "analyst", body)
	assert.Equal(t, http.StatusOK, first.Code)
	eventsAfterFirst := env.events.created
	assert.Greater(t, eventsAfterFirst, 0)

	second := env.do(http.MethodPost, "/v1/query", "analyst", body)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, decodeEnvelope(t, first), decodeEnvelope(t, second))

	// The hit never reaches the supervisor, so no new turn events are written.
	assert.Equal(t, eventsAfterFirst, env.events.created)
}

func TestQueryUnavailableGate(t *testing.T) {
	// No probe has run yet, so the monitor still reports unavailable.
	env := newTestEnv(t, false)

	rec := env.do(http.MethodPost, "/v1/query", "analyst", `{"query":"anything"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExplainEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(http.MethodPost, "/v1/explain/1", "analyst", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.Contains(t, envelope.ToolsUsed, tools.ScoreExplainName)
	assert.NotEmpty(t, envelope.Sources)
}

func TestExplainEndpointGuestForbidden(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(http.MethodPost, "/v1/explain/1", "guest", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExplainEndpointUnknownEntity(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(http.MethodPost, "/v1/explain/9999", "analyst", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPost, "/v1/explain/zero", "analyst", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(http.MethodGet, "/v1/status", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var snap health.Snapshot
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, domain.HealthOperational, snap.Status)
	assert.NotEmpty(t, snap.ToolsAvailable)
}

func TestConversationEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(http.MethodPost, "/v1/query", "analyst",
		`{"query":"Which water bodies in the north are high priority?","conversation_id":"conv_1","filters":{"region":"north"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/v1/conversations/conv_1", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ConversationID string                    `json:"conversation_id"`
		Turns          []domain.ConversationTurn `json:"turns"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "conv_1", resp.ConversationID)
	assert.Len(t, resp.Turns, 1)
}

func TestRescoreEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(http.MethodPost, "/internal/records/1/rescore", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Record              domain.WaterBody `json:"record"`
		CacheEntriesRemoved int              `json:"cache_entries_removed"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Record.ID)
	assert.Greater(t, resp.Record.PriorityScore, 0.0)

	rec = env.do(http.MethodPost, "/internal/records/9999/rescore", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPost, "/internal/records/bogus/rescore", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRescoreInvalidatesCachedAnswers(t *testing.T) {
	env := newTestEnv(t, true)
	body := `{"query":"tell me about this record","filters":{"entity_id":1}}`

	first := env.do(http.MethodPost, "/v1/query", "analyst", body)
	assert.Equal(t, http.StatusOK, first.Code)

	rec := env.do(http.MethodPost, "/internal/records/1/rescore", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CacheEntriesRemoved int `json:"cache_entries_removed"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.CacheEntriesRemoved)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}
