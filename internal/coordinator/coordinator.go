package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/metrics"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/optimizer"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/logger"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/retry"
)

const (
	minTimeoutMS = 1000
	maxTimeoutMS = 30000
)

// Router classifies free text into a target domain.
type Router interface {
	Classify(ctx context.Context, text, sessionID, userID string) (*models.RoutingResult, error)
}

// DomainAgent turns a routed request into SQL for its domain.
type DomainAgent interface {
	Name() string
	ProcessQuery(ctx context.Context, req *models.QueryRequest) (*models.SynthesisResult, error)
}

// Optimizer rewrites and sanity-checks synthesized SQL.
type Optimizer interface {
	Optimize(ctx context.Context, sql, tenantID string, opts optimizer.Options) (*models.OptimizationResult, error)
}

// Pinger is implemented by collaborators that support liveness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionStore keeps per-conversation context. All session operations are
// best effort; a failing store never fails a query.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*models.SessionContext, error)
	Save(ctx context.Context, sc *models.SessionContext) error
}

type Config struct {
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	// Zero means the default; a negative value disables retries.
	MaxRetries     int
	CacheTTL       time.Duration
	HealthInterval time.Duration
	MaxRowLimit    int
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	switch {
	case c.MaxRetries < 0:
		c.MaxRetries = 0
	case c.MaxRetries == 0:
		c.MaxRetries = 2
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.HealthInterval == 0 {
		c.HealthInterval = 60 * time.Second
	}
	if c.MaxRowLimit == 0 {
		c.MaxRowLimit = 1000
	}
	return c
}

// Coordinator orchestrates routing, synthesis and optimization with retry,
// caching, per-call flow tracking and collaborator health monitoring.
type Coordinator struct {
	cfg       Config
	router    Router
	agents    map[string]DomainAgent
	optimizer Optimizer
	cache     Cache
	health    *HealthMonitor
	metrics   *metricsTracker
	sessions  SessionStore
	clock     func() time.Time

	mu    sync.Mutex
	flows map[string]*FlowState

	probeStop chan struct{}
	probeDone chan struct{}
	started   bool
}

type Option func(*Coordinator)

func WithCache(cache Cache) Option {
	return func(c *Coordinator) { c.cache = cache }
}

func WithSessionStore(store SessionStore) Option {
	return func(c *Coordinator) { c.sessions = store }
}

func withClock(clock func() time.Time) Option {
	return func(c *Coordinator) { c.clock = clock }
}

func New(cfg Config, router Router, agents []DomainAgent, opt Optimizer, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:       cfg.withDefaults(),
		router:    router,
		agents:    make(map[string]DomainAgent, len(agents)),
		optimizer: opt,
		cache:     NewMemoryCache(),
		health:    NewHealthMonitor(),
		metrics:   newMetricsTracker(),
		clock:     time.Now,
		flows:     make(map[string]*FlowState),
	}
	for _, agent := range agents {
		c.agents[agent.Name()] = agent
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Initialize starts the background health prober. Safe to skip in tests.
func (c *Coordinator) Initialize() {
	if c.started {
		return
	}
	c.started = true
	c.probeStop = make(chan struct{})
	c.probeDone = make(chan struct{})
	go c.probeLoop()

	logger.Info("Coordinator initialized",
		zap.Int("agents", len(c.agents)),
		zap.Duration("timeout", c.cfg.Timeout),
		zap.Int("max_retries", c.cfg.MaxRetries),
	)
}

func (c *Coordinator) Shutdown() {
	if !c.started {
		return
	}
	c.started = false
	close(c.probeStop)
	<-c.probeDone
	logger.Info("Coordinator stopped")
}

// Coordinate runs the full pipeline for one request. It always returns a
// response; failures are encoded in the response rather than an error.
func (c *Coordinator) Coordinate(ctx context.Context, req *models.QueryRequest) *models.QueryResponse {
	start := c.clock()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	if msg := validateRequest(req); msg != "" {
		c.metrics.recordRequest(false, false, false, 0)
		return &models.QueryResponse{
			RequestID:   requestID,
			SessionID:   req.SessionID,
			Error:       &models.ErrorInfo{Code: ErrCodeInvalidRequest, Message: msg},
			GeneratedAt: c.clock(),
		}
	}

	key := cacheKey(req)
	if cached, ok := c.cache.Get(ctx, key); ok {
		c.metrics.recordRequest(true, false, true, c.clock().Sub(start).Milliseconds())
		metrics.CacheHits.WithLabelValues("response").Inc()
		logger.Debug("Cache hit", zap.String("request_id", requestID), zap.String("tenant_id", req.TenantID))
		return cached
	}
	metrics.CacheMisses.WithLabelValues("response").Inc()

	timeout := c.cfg.Timeout
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	flow := newFlowState(requestID, req.SessionID, c.clock)
	c.trackFlow(flow)
	defer c.untrackFlow(requestID)

	done := make(chan *models.QueryResponse, 1)
	go func() {
		done <- c.runPipeline(ctx, req, requestID, flow, key, start)
	}()

	select {
	case resp := <-done:
		// A pipeline failure caused by the deadline itself is reported as a
		// timeout, not as a collaborator error.
		if ctx.Err() != nil && !resp.Success {
			return c.timeoutResponse(req, requestID, flow, timeout, start)
		}
		c.metrics.recordRequest(resp.Success, false, false, c.clock().Sub(start).Milliseconds())
		return resp
	case <-ctx.Done():
		return c.timeoutResponse(req, requestID, flow, timeout, start)
	}
}

func (c *Coordinator) timeoutResponse(req *models.QueryRequest, requestID string, flow *FlowState, timeout time.Duration, start time.Time) *models.QueryResponse {
	elapsed := c.clock().Sub(start).Milliseconds()
	c.metrics.recordRequest(false, true, false, elapsed)
	logger.Warn("Request timed out",
		zap.String("request_id", requestID),
		zap.String("step", string(flow.step())),
		zap.Duration("timeout", timeout),
	)
	return &models.QueryResponse{
		RequestID: requestID,
		SessionID: req.SessionID,
		Error: &models.ErrorInfo{
			Code:    ErrCodeTimeout,
			Message: fmt.Sprintf("request exceeded the %d ms deadline", timeout.Milliseconds()),
			Step:    string(flow.step()),
		},
		Metrics:     models.ResponseMetrics{TotalTimeMS: elapsed, StepTimings: flow.timings()},
		GeneratedAt: c.clock(),
	}
}

func (c *Coordinator) runPipeline(ctx context.Context, req *models.QueryRequest, requestID string, flow *FlowState, key string, start time.Time) *models.QueryResponse {
	req = c.applySessionContext(ctx, req)

	flow.begin(StepRouting)
	routing, err := retry.DoWithResult(ctx, c.retryConfig("router"), func(ctx context.Context) (*models.RoutingResult, error) {
		return c.router.Classify(ctx, req.Query, req.SessionID, req.UserID)
	})
	flow.end(StepRouting)
	if err != nil {
		return c.failure(requestID, req.SessionID, flow, start, ErrCodeOrchestrationFailed,
			"Unable to route the request to a domain specialist.")
	}

	if routing.RequiresClarification {
		// A clarification is a successful outcome; it is never cached so the
		// follow-up query is evaluated fresh.
		flow.complete()
		return &models.QueryResponse{
			Success:             true,
			RequestID:           requestID,
			SessionID:           req.SessionID,
			Routing:             routing,
			ClarificationNeeded: true,
			ClarificationPrompt: routing.ClarificationPrompt,
			Warnings: []models.Warning{{
				Code:     ErrCodeClarificationNeeded,
				Severity: models.SeverityInfo,
				Message:  "More detail is needed before a query can be generated.",
			}},
			Metrics: models.ResponseMetrics{
				TotalTimeMS: c.clock().Sub(start).Milliseconds(),
				StepTimings: flow.timings(),
			},
			GeneratedAt: c.clock(),
		}
	}

	agent, ok := c.agents[routing.Domain]
	if !ok {
		return c.failure(requestID, req.SessionID, flow, start, ErrCodeDomainAgentFailed,
			fmt.Sprintf("no specialist is registered for domain %q", routing.Domain))
	}

	flow.begin(StepDomain)
	synthesis, err := retry.DoWithResult(ctx, c.retryConfig("agent:"+agent.Name()), func(ctx context.Context) (*models.SynthesisResult, error) {
		return agent.ProcessQuery(ctx, req)
	})
	flow.end(StepDomain)
	if err != nil {
		return c.failure(requestID, req.SessionID, flow, start, ErrCodeDomainAgentFailed,
			fmt.Sprintf("the %s specialist could not generate a query for this request", agent.Name()))
	}

	strategy := "dynamic"
	if synthesis.TemplateID != "" {
		strategy = "template"
	}
	metrics.TemplateMatches.WithLabelValues(strategy).Inc()

	warnings := collectWarnings(synthesis)
	sql := synthesis.SQL

	if !req.SkipOptimization && c.optimizer != nil {
		flow.begin(StepOptimization)
		optimized, err := retry.DoWithResult(ctx, c.retryConfig("optimizer"), func(ctx context.Context) (*models.OptimizationResult, error) {
			return c.optimizer.Optimize(ctx, sql, req.TenantID, optimizer.Options{MaxRowLimit: c.cfg.MaxRowLimit})
		})
		flow.end(StepOptimization)

		if err != nil || !optimized.IsValid {
			// Optimization is best effort: keep the synthesized SQL and say so.
			metrics.OptimizationFallbacks.Inc()
			warnings = append(warnings, models.Warning{
				Code:     ErrCodeOptimizationFailed,
				Severity: models.SeverityWarning,
				Message:  "optimization failed; returning the unoptimized query",
			})
			logger.Warn("Optimization failed, keeping synthesized SQL",
				zap.String("request_id", requestID), zap.Error(err))
		} else {
			sql = optimized.OptimizedSQL
			for _, w := range optimized.Warnings {
				warnings = append(warnings, models.Warning{
					Code:     warnCodeOptimizer,
					Severity: models.SeverityInfo,
					Message:  w,
				})
			}
		}
	}

	flow.complete()

	// The response is fully populated, total time included, before it is
	// published to the cache: a concurrent cache hit may read it immediately.
	resp := &models.QueryResponse{
		Success:     true,
		RequestID:   requestID,
		SessionID:   req.SessionID,
		Routing:     routing,
		SQL:         sql,
		Explanation: synthesis.Explanation,
		Confidence:  synthesis.Confidence,
		Tables:      synthesis.Tables,
		Columns:     synthesis.Columns,
		Warnings:    warnings,
		Metrics: models.ResponseMetrics{
			TotalTimeMS: c.clock().Sub(start).Milliseconds(),
			StepTimings: flow.timings(),
		},
		GeneratedAt: c.clock(),
	}

	// Cache only completed successes, and only while the caller is still
	// waiting; a response finishing after the deadline must not be served
	// to anyone else.
	if ctx.Err() == nil {
		if err := c.cache.Set(ctx, key, resp, c.cfg.CacheTTL); err != nil {
			logger.Warn("Failed to cache response", zap.Error(err))
		}
		c.saveSessionContext(ctx, req, routing.Domain)
	}

	return resp
}

func (c *Coordinator) failure(requestID, sessionID string, flow *FlowState, start time.Time, code, message string) *models.QueryResponse {
	logger.Error("Pipeline step failed",
		zap.String("request_id", requestID),
		zap.String("step", string(flow.step())),
		zap.String("code", code),
	)
	return &models.QueryResponse{
		RequestID: requestID,
		SessionID: sessionID,
		Error: &models.ErrorInfo{
			Code:    code,
			Message: message,
			Step:    string(flow.step()),
		},
		Metrics: models.ResponseMetrics{
			TotalTimeMS: c.clock().Sub(start).Milliseconds(),
			StepTimings: flow.timings(),
		},
		GeneratedAt: c.clock(),
	}
}

func (c *Coordinator) retryConfig(target string) retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = c.cfg.MaxRetries
	cfg.Logger = logger.GetLogger()
	cfg.OnAttempt = func(attempt int, err error, elapsed time.Duration) {
		if err == nil {
			c.health.RecordSuccess(target, elapsed)
		} else {
			c.health.RecordFailure(target, err)
		}
	}
	return cfg
}

// applySessionContext fills a missing entity from the previous turn so a
// follow-up like "now show the duplicates" stays scoped to the same client.
func (c *Coordinator) applySessionContext(ctx context.Context, req *models.QueryRequest) *models.QueryRequest {
	if c.sessions == nil || req.EntityName != "" {
		return req
	}
	sc, err := c.sessions.Get(ctx, req.SessionID)
	if err != nil || sc == nil || sc.LastEntity == "" {
		return req
	}
	scoped := *req
	scoped.EntityName = sc.LastEntity
	return &scoped
}

func (c *Coordinator) saveSessionContext(ctx context.Context, req *models.QueryRequest, domain string) {
	if c.sessions == nil {
		return
	}
	sc, err := c.sessions.Get(ctx, req.SessionID)
	if err != nil || sc == nil {
		sc = &models.SessionContext{SessionID: req.SessionID, TenantID: req.TenantID}
	}
	sc.LastDomain = domain
	sc.LastQuery = req.Query
	if req.EntityName != "" {
		sc.LastEntity = req.EntityName
	}
	sc.TurnCount++
	sc.LastUpdated = c.clock()
	if err := c.sessions.Save(ctx, sc); err != nil {
		logger.Warn("Failed to save session context",
			zap.String("session_id", req.SessionID), zap.Error(err))
	}
}

func (c *Coordinator) GetHealthStatus() map[string]HealthStatus {
	return c.health.Snapshot()
}

func (c *Coordinator) GetMetrics() Metrics {
	return c.metrics.snapshot()
}

func (c *Coordinator) ClearCache(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

func (c *Coordinator) GetActiveFlows() []FlowSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	flows := make([]FlowSnapshot, 0, len(c.flows))
	for _, flow := range c.flows {
		flows = append(flows, flow.snapshot())
	}
	return flows
}

func (c *Coordinator) trackFlow(flow *FlowState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flows[flow.RequestID] = flow
	metrics.ActiveFlows.Set(float64(len(c.flows)))
}

func (c *Coordinator) untrackFlow(requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.flows, requestID)
	metrics.ActiveFlows.Set(float64(len(c.flows)))
}

func (c *Coordinator) probeLoop() {
	defer close(c.probeDone)

	ticker := time.NewTicker(c.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.probeStop:
			return
		case <-ticker.C:
			c.probeAll()
		}
	}
}

func (c *Coordinator) probeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	probe := func(name string, target any) {
		pinger, ok := target.(Pinger)
		if !ok {
			return
		}
		start := c.clock()
		if err := pinger.Ping(ctx); err != nil {
			c.health.RecordFailure(name, err)
			return
		}
		c.health.RecordSuccess(name, c.clock().Sub(start))
	}

	probe("router", c.router)
	probe("optimizer", c.optimizer)
	for name, agent := range c.agents {
		probe("agent:"+name, agent)
	}
}

func validateRequest(req *models.QueryRequest) string {
	switch {
	case req.Query == "":
		return "query text is required"
	case req.SessionID == "":
		return "session id is required"
	case req.TenantID == "":
		return "tenant id is required"
	}
	if req.TimeoutMS != 0 && (req.TimeoutMS < minTimeoutMS || req.TimeoutMS > maxTimeoutMS) {
		return "timeout must be between 1000 and 30000"
	}
	return ""
}

// cacheKey scopes cached responses by tenant and by entity or portfolio so
// identical text from different scopes never collides.
func cacheKey(req *models.QueryRequest) string {
	scope := req.EntityName
	if scope == "" {
		scope = req.Portfolio
	}
	return fmt.Sprintf("%s:%s:%s", req.TenantID, scope, req.Query)
}

func collectWarnings(synthesis *models.SynthesisResult) []models.Warning {
	var warnings []models.Warning
	for _, msg := range synthesis.Warnings {
		warnings = append(warnings, models.Warning{
			Code:     warnCodeSynthesis,
			Severity: models.SeverityWarning,
			Message:  msg,
		})
	}
	for _, risk := range synthesis.Risks {
		warnings = append(warnings, models.Warning{
			Code:     warnCodeRisk,
			Severity: severityForRisk(risk.Severity),
			Message:  fmt.Sprintf("%s: %s", risk.Category, risk.Description),
		})
	}
	return warnings
}

func severityForRisk(risk models.RiskSeverity) models.WarningSeverity {
	switch risk {
	case models.RiskHigh:
		return models.SeverityError
	case models.RiskMedium:
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}
