package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/optimizer"
)

type stubRouter struct {
	calls  int32
	result *models.RoutingResult
	err    error
}

func (r *stubRouter) Classify(ctx context.Context, text, sessionID, userID string) (*models.RoutingResult, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

type stubAgent struct {
	name   string
	calls  int32
	result *models.SynthesisResult
	err    error
	block  bool
}

func (a *stubAgent) Name() string { return a.name }

func (a *stubAgent) ProcessQuery(ctx context.Context, req *models.QueryRequest) (*models.SynthesisResult, error) {
	atomic.AddInt32(&a.calls, 1)
	if a.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

type stubOptimizer struct {
	calls  int32
	result *models.OptimizationResult
	err    error
}

func (o *stubOptimizer) Optimize(ctx context.Context, sql, tenantID string, opts optimizer.Options) (*models.OptimizationResult, error) {
	atomic.AddInt32(&o.calls, 1)
	if o.err != nil {
		return nil, o.err
	}
	return o.result, nil
}

func auditRouting() *models.RoutingResult {
	return &models.RoutingResult{Domain: "audit", Intent: "financial_analysis", Confidence: 0.9}
}

func synthesisFixture() *models.SynthesisResult {
	return &models.SynthesisResult{
		SQL:        "SELECT t.amount FROM gl_transactions t WHERE t.tenant_id = 't1'",
		Confidence: 0.95,
		Tables:     []string{"gl_transactions"},
		Columns:    []string{"amount"},
		Warnings:   []string{"no row limit on the outer query"},
		Risks: []models.RiskAnnotation{
			{Severity: models.RiskHigh, Category: "Payment Control", Description: "possible duplicates"},
			{Severity: models.RiskLow, Category: "General Review", Description: "broad query"},
		},
	}
}

func validRequest() *models.QueryRequest {
	return &models.QueryRequest{
		Query:      "find duplicate payments",
		TenantID:   "t1",
		EntityName: "ABC Company",
		SessionID:  "s1",
	}
}

func newTestCoordinator(r Router, agents []DomainAgent, o Optimizer, opts ...Option) *Coordinator {
	return New(Config{Timeout: 5 * time.Second, CacheTTL: time.Minute}, r, agents, o, opts...)
}

func TestCoordinateSuccess(t *testing.T) {
	router := &stubRouter{result: auditRouting()}
	agent := &stubAgent{name: "audit", result: synthesisFixture()}
	opt := &stubOptimizer{result: &models.OptimizationResult{
		IsValid:      true,
		OptimizedSQL: "SELECT TOP (1000) t.amount FROM gl_transactions t WHERE t.tenant_id = 't1'",
		Warnings:     []string{"row limit of 1000 applied"},
	}}

	c := newTestCoordinator(router, []DomainAgent{agent}, opt)
	resp := c.Coordinate(context.Background(), validRequest())

	require.True(t, resp.Success)
	require.Nil(t, resp.Error)
	assert.Equal(t, opt.result.OptimizedSQL, resp.SQL)
	assert.Equal(t, "audit", resp.Routing.Domain)
	assert.InDelta(t, 0.95, resp.Confidence, 1e-9)
	assert.NotEmpty(t, resp.RequestID)

	assert.Contains(t, resp.Metrics.StepTimings, "routing")
	assert.Contains(t, resp.Metrics.StepTimings, "domain")
	assert.Contains(t, resp.Metrics.StepTimings, "optimization")

	m := c.GetMetrics()
	assert.Equal(t, int64(1), m.TotalRequests)
	assert.Equal(t, int64(1), m.SuccessfulRequests)
	assert.Equal(t, int64(0), m.FailedRequests)
}

func TestCoordinateRiskSeverityMapping(t *testing.T) {
	router := &stubRouter{result: auditRouting()}
	agent := &stubAgent{name: "audit", result: synthesisFixture()}
	opt := &stubOptimizer{result: &models.OptimizationResult{IsValid: true, OptimizedSQL: "SELECT 1"}}

	c := newTestCoordinator(router, []DomainAgent{agent}, opt)
	resp := c.Coordinate(context.Background(), validRequest())
	require.True(t, resp.Success)

	bySeverity := map[models.WarningSeverity]int{}
	for _, w := range resp.Warnings {
		bySeverity[w.Severity]++
	}
	// One synthesis warning (warning), one high risk (error), one low risk (info).
	assert.Equal(t, 1, bySeverity[models.SeverityError])
	assert.GreaterOrEqual(t, bySeverity[models.SeverityWarning], 1)
	assert.GreaterOrEqual(t, bySeverity[models.SeverityInfo], 1)
}

func TestCoordinateValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.QueryRequest)
		message string
	}{
		{"missing query", func(r *models.QueryRequest) { r.Query = "" }, "query text is required"},
		{"missing session", func(r *models.QueryRequest) { r.SessionID = "" }, "session id is required"},
		{"missing tenant", func(r *models.QueryRequest) { r.TenantID = "" }, "tenant id is required"},
		{"timeout too low", func(r *models.QueryRequest) { r.TimeoutMS = 500 }, "timeout must be between 1000 and 30000"},
		{"timeout too high", func(r *models.QueryRequest) { r.TimeoutMS = 60000 }, "timeout must be between 1000 and 30000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := &stubRouter{result: auditRouting()}
			c := newTestCoordinator(router, nil, nil)

			req := validRequest()
			tt.mutate(req)
			resp := c.Coordinate(context.Background(), req)

			require.NotNil(t, resp.Error)
			assert.False(t, resp.Success)
			assert.Equal(t, ErrCodeInvalidRequest, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
			assert.Zero(t, atomic.LoadInt32(&router.calls), "validation failures stop before routing")
		})
	}
}

func TestCoordinateCachesSuccessWithinTTL(t *testing.T) {
	router := &stubRouter{result: auditRouting()}
	agent := &stubAgent{name: "audit", result: synthesisFixture()}
	opt := &stubOptimizer{result: &models.OptimizationResult{IsValid: true, OptimizedSQL: "SELECT 1"}}

	c := newTestCoordinator(router, []DomainAgent{agent}, opt)

	first := c.Coordinate(context.Background(), validRequest())
	second := c.Coordinate(context.Background(), validRequest())

	assert.Same(t, first, second, "a repeat within the TTL is served verbatim from cache")
	assert.Equal(t, int32(1), atomic.LoadInt32(&router.calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&agent.calls))

	m := c.GetMetrics()
	assert.Equal(t, int64(1), m.CacheHits)
	assert.InDelta(t, 0.5, m.CacheHitRate, 1e-9)

	require.NoError(t, c.ClearCache(context.Background()))
	c.Coordinate(context.Background(), validRequest())
	assert.Equal(t, int32(2), atomic.LoadInt32(&router.calls))
}

func TestCoordinateConcurrentIdenticalRequests(t *testing.T) {
	router := &stubRouter{result: auditRouting()}
	agent := &stubAgent{name: "audit", result: synthesisFixture()}
	opt := &stubOptimizer{result: &models.OptimizationResult{IsValid: true, OptimizedSQL: "SELECT 1"}}

	c := newTestCoordinator(router, []DomainAgent{agent}, opt)

	const callers = 8
	responses := make([]*models.QueryResponse, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			responses[i] = c.Coordinate(context.Background(), validRequest())
		}(i)
	}
	wg.Wait()

	for _, resp := range responses {
		require.True(t, resp.Success)
		assert.Equal(t, "SELECT 1", resp.SQL)
	}

	// A cached response is published fully populated and never written
	// afterwards, so replays carry the original's metrics verbatim.
	first := c.Coordinate(context.Background(), validRequest())
	second := c.Coordinate(context.Background(), validRequest())
	assert.Same(t, first, second)
	assert.Equal(t, first.Metrics.TotalTimeMS, second.Metrics.TotalTimeMS)
}

func TestCoordinateCacheKeyScoping(t *testing.T) {
	router := &stubRouter{result: auditRouting()}
	agent := &stubAgent{name: "audit", result: synthesisFixture()}
	opt := &stubOptimizer{result: &models.OptimizationResult{IsValid: true, OptimizedSQL: "SELECT 1"}}

	c := newTestCoordinator(router, []DomainAgent{agent}, opt)

	c.Coordinate(context.Background(), validRequest())

	other := validRequest()
	other.EntityName = "XYZ Corp"
	c.Coordinate(context.Background(), other)

	assert.Equal(t, int32(2), atomic.LoadInt32(&router.calls), "different entity scope misses the cache")
}

func TestCoordinateClarificationShortCircuit(t *testing.T) {
	router := &stubRouter{result: &models.RoutingResult{
		RequiresClarification: true,
		ClarificationPrompt:   "Audit ledger or lending portfolio?",
		Confidence:            0.2,
	}}
	agent := &stubAgent{name: "audit", result: synthesisFixture()}

	c := newTestCoordinator(router, []DomainAgent{agent}, &stubOptimizer{})

	resp := c.Coordinate(context.Background(), validRequest())
	require.True(t, resp.Success)
	assert.True(t, resp.ClarificationNeeded)
	assert.Equal(t, "Audit ledger or lending portfolio?", resp.ClarificationPrompt)
	assert.Empty(t, resp.SQL)
	assert.Zero(t, atomic.LoadInt32(&agent.calls), "no synthesis on clarification")

	// Clarifications are never cached; the follow-up is evaluated fresh.
	c.Coordinate(context.Background(), validRequest())
	assert.Equal(t, int32(2), atomic.LoadInt32(&router.calls))
}

func TestCoordinateRetryBound(t *testing.T) {
	router := &stubRouter{err: errors.New("classifier down")}
	c := New(Config{Timeout: 5 * time.Second, MaxRetries: 2}, router, nil, &stubOptimizer{})

	resp := c.Coordinate(context.Background(), validRequest())

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeOrchestrationFailed, resp.Error.Code)
	assert.Equal(t, string(StepRouting), resp.Error.Step)
	assert.Equal(t, int32(3), atomic.LoadInt32(&router.calls), "initial attempt plus two retries")
}

func TestCoordinateNegativeMaxRetriesDisablesRetry(t *testing.T) {
	router := &stubRouter{err: errors.New("classifier down")}
	c := New(Config{Timeout: 5 * time.Second, MaxRetries: -1}, router, nil, &stubOptimizer{})

	resp := c.Coordinate(context.Background(), validRequest())

	require.NotNil(t, resp.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&router.calls), "single attempt, no retries")
}

func TestCoordinateDomainAgentFailure(t *testing.T) {
	router := &stubRouter{result: auditRouting()}
	agent := &stubAgent{name: "audit", err: errors.New("synthesis blew up")}

	c := New(Config{Timeout: 5 * time.Second, MaxRetries: 1}, router, []DomainAgent{agent}, &stubOptimizer{})
	resp := c.Coordinate(context.Background(), validRequest())

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDomainAgentFailed, resp.Error.Code)
	assert.Equal(t, string(StepDomain), resp.Error.Step)
	assert.Equal(t, int32(2), atomic.LoadInt32(&agent.calls))

	m := c.GetMetrics()
	assert.Equal(t, int64(1), m.FailedRequests)
}

func TestCoordinateUnknownDomain(t *testing.T) {
	router := &stubRouter{result: &models.RoutingResult{Domain: "payroll", Confidence: 0.8}}
	c := newTestCoordinator(router, nil, &stubOptimizer{})

	resp := c.Coordinate(context.Background(), validRequest())
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDomainAgentFailed, resp.Error.Code)
}

func TestCoordinateOptimizerFailureDegrades(t *testing.T) {
	tests := []struct {
		name string
		opt  *stubOptimizer
	}{
		{"optimizer error", &stubOptimizer{err: errors.New("rules crashed")}},
		{"optimizer rejects", &stubOptimizer{result: &models.OptimizationResult{IsValid: false, Errors: []string{"no tenant filter"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := &stubRouter{result: auditRouting()}
			synthesis := synthesisFixture()
			agent := &stubAgent{name: "audit", result: synthesis}

			c := New(Config{Timeout: 5 * time.Second, MaxRetries: 1}, router, []DomainAgent{agent}, tt.opt)
			resp := c.Coordinate(context.Background(), validRequest())

			require.True(t, resp.Success, "optimizer failure must not fail the call")
			assert.Equal(t, synthesis.SQL, resp.SQL, "pre-optimization SQL is kept")

			var found int
			for _, w := range resp.Warnings {
				if w.Code == ErrCodeOptimizationFailed {
					found++
					assert.Equal(t, models.SeverityWarning, w.Severity)
				}
			}
			assert.Equal(t, 1, found, "exactly one optimization warning")
		})
	}
}

func TestCoordinateSkipOptimization(t *testing.T) {
	router := &stubRouter{result: auditRouting()}
	agent := &stubAgent{name: "audit", result: synthesisFixture()}
	opt := &stubOptimizer{result: &models.OptimizationResult{IsValid: true, OptimizedSQL: "SELECT 1"}}

	c := newTestCoordinator(router, []DomainAgent{agent}, opt)

	req := validRequest()
	req.SkipOptimization = true
	resp := c.Coordinate(context.Background(), req)

	require.True(t, resp.Success)
	assert.Zero(t, atomic.LoadInt32(&opt.calls))
	assert.NotContains(t, resp.Metrics.StepTimings, "optimization")
}

func TestCoordinateTimeout(t *testing.T) {
	router := &stubRouter{result: auditRouting()}
	agent := &stubAgent{name: "audit", block: true}

	c := New(Config{MaxRetries: 1}, router, []DomainAgent{agent}, &stubOptimizer{})

	req := validRequest()
	req.TimeoutMS = 1000
	start := time.Now()
	resp := c.Coordinate(context.Background(), req)
	elapsed := time.Since(start)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTimeout, resp.Error.Code)
	assert.Equal(t, string(StepDomain), resp.Error.Step)
	assert.Contains(t, resp.Error.Message, "1000 ms")
	assert.Less(t, elapsed, 3*time.Second)

	m := c.GetMetrics()
	assert.Equal(t, int64(1), m.TimedOutRequests)
}

func TestGetActiveFlowsTracksInFlightRequests(t *testing.T) {
	router := &stubRouter{result: auditRouting()}
	agent := &stubAgent{name: "audit", block: true}

	c := newTestCoordinator(router, []DomainAgent{agent}, &stubOptimizer{})

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		c.Coordinate(ctx, validRequest())
		close(finished)
	}()

	var seen []FlowSnapshot
	deadline := time.Now().Add(2 * time.Second)
	for len(seen) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("in-flight request never appeared in the active flows")
		}
		seen = c.GetActiveFlows()
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, "s1", seen[0].SessionID)

	cancel()
	<-finished
	assert.Empty(t, c.GetActiveFlows(), "flows are discarded when the call returns")
}

func TestCoordinateHealthRecording(t *testing.T) {
	router := &stubRouter{err: errors.New("down")}
	c := New(Config{Timeout: 5 * time.Second, MaxRetries: 2}, router, nil, &stubOptimizer{})

	c.Coordinate(context.Background(), validRequest())

	statuses := c.GetHealthStatus()
	status, ok := statuses["router"]
	require.True(t, ok)
	assert.Less(t, status.SuccessRate, 90.0)
	assert.Equal(t, "down", status.LastError)
}

type stubSessionStore struct {
	ctx   *models.SessionContext
	saved *models.SessionContext
}

func (s *stubSessionStore) Get(ctx context.Context, sessionID string) (*models.SessionContext, error) {
	return s.ctx, nil
}

func (s *stubSessionStore) Save(ctx context.Context, sc *models.SessionContext) error {
	s.saved = sc
	return nil
}

func TestCoordinateSessionContextCarryOver(t *testing.T) {
	router := &stubRouter{result: auditRouting()}

	var seenEntity string
	agent := &captureAgent{name: "audit", onReq: func(req *models.QueryRequest) {
		seenEntity = req.EntityName
	}}
	store := &stubSessionStore{ctx: &models.SessionContext{SessionID: "s1", LastEntity: "ABC Company"}}

	c := newTestCoordinator(router, []DomainAgent{agent}, &stubOptimizer{result: &models.OptimizationResult{IsValid: true, OptimizedSQL: "SELECT 1"}}, WithSessionStore(store))

	req := validRequest()
	req.EntityName = ""
	resp := c.Coordinate(context.Background(), req)

	require.True(t, resp.Success)
	assert.Equal(t, "ABC Company", seenEntity, "entity carried over from the previous turn")
	require.NotNil(t, store.saved)
	assert.Equal(t, 1, store.saved.TurnCount)
	assert.Equal(t, "audit", store.saved.LastDomain)
}

type captureAgent struct {
	name  string
	onReq func(*models.QueryRequest)
}

func (a *captureAgent) Name() string { return a.name }

func (a *captureAgent) ProcessQuery(ctx context.Context, req *models.QueryRequest) (*models.SynthesisResult, error) {
	if a.onReq != nil {
		a.onReq(req)
	}
	return synthesisFixture(), nil
}
