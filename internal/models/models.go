package models

import "time"

type FocusArea string

const (
	FocusVariance  FocusArea = "variance_analysis"
	FocusLarge     FocusArea = "large_items"
	FocusAged      FocusArea = "aged_items"
	FocusUnusual   FocusArea = "unusual_entries"
	FocusRound     FocusArea = "round_amounts"
	FocusDuplicate FocusArea = "duplicate_detection"
	FocusCutoff    FocusArea = "cutoff_analysis"
	FocusGeneral   FocusArea = "general_analysis"
)

type Timeframe string

const (
	TimeframeCurrent    Timeframe = "current"
	TimeframePeriod     Timeframe = "period"
	TimeframeHistorical Timeframe = "historical"
	TimeframeCustom     Timeframe = "custom"
)

type RiskSeverity string

const (
	RiskHigh   RiskSeverity = "high"
	RiskMedium RiskSeverity = "medium"
	RiskLow    RiskSeverity = "low"
)

type WarningSeverity string

const (
	SeverityError   WarningSeverity = "error"
	SeverityWarning WarningSeverity = "warning"
	SeverityInfo    WarningSeverity = "info"
)

// QueryRequest is the caller-facing request for the full pipeline.
type QueryRequest struct {
	Query              string            `json:"query"`
	TenantID           string            `json:"tenant_id"`
	EntityName         string            `json:"entity_name,omitempty"`
	Portfolio          string            `json:"portfolio,omitempty"`
	SessionID          string            `json:"session_id"`
	UserID             string            `json:"user_id,omitempty"`
	RequestID          string            `json:"request_id,omitempty"`
	MaxResults         int               `json:"max_results,omitempty"`
	IncludeExplanation bool              `json:"include_explanation,omitempty"`
	SkipOptimization   bool              `json:"skip_optimization,omitempty"`
	TimeoutMS          int               `json:"timeout_ms,omitempty"`
	Parameters         map[string]string `json:"parameters,omitempty"`
}

type RiskAnnotation struct {
	Severity       RiskSeverity `json:"severity"`
	Category       string       `json:"category"`
	Description    string       `json:"description"`
	Recommendation string       `json:"recommendation,omitempty"`
}

type Warning struct {
	Code     string          `json:"code"`
	Severity WarningSeverity `json:"severity"`
	Message  string          `json:"message"`
}

// SynthesisResult is produced by a domain agent's query synthesizer.
type SynthesisResult struct {
	SQL              string           `json:"sql"`
	Confidence       float64          `json:"confidence"`
	Tables           []string         `json:"tables"`
	Columns          []string         `json:"columns"`
	Explanation      string           `json:"explanation,omitempty"`
	PerformanceNotes string           `json:"performance_notes,omitempty"`
	Risks            []RiskAnnotation `json:"risks,omitempty"`
	Warnings         []string         `json:"warnings,omitempty"`
	TemplateID       string           `json:"template_id,omitempty"`
}

type RoutingResult struct {
	Domain                string  `json:"domain"`
	Intent                string  `json:"intent"`
	Confidence            float64 `json:"confidence"`
	RequiresClarification bool    `json:"requires_clarification"`
	ClarificationPrompt   string  `json:"clarification_prompt,omitempty"`
	Explanation           string  `json:"explanation,omitempty"`
}

type OptimizationResult struct {
	OptimizedSQL string   `json:"optimized_sql"`
	IsValid      bool     `json:"is_valid"`
	Warnings     []string `json:"warnings,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Step    string `json:"step,omitempty"`
}

type ResponseMetrics struct {
	TotalTimeMS int64            `json:"total_time_ms"`
	StepTimings map[string]int64 `json:"step_timings,omitempty"`
}

// QueryResponse is the coordinator's final answer.
type QueryResponse struct {
	Success             bool            `json:"success"`
	RequestID           string          `json:"request_id"`
	SessionID           string          `json:"session_id"`
	Routing             *RoutingResult  `json:"routing,omitempty"`
	SQL                 string          `json:"sql,omitempty"`
	Explanation         string          `json:"explanation,omitempty"`
	Confidence          float64         `json:"confidence,omitempty"`
	Tables              []string        `json:"tables,omitempty"`
	Columns             []string        `json:"columns,omitempty"`
	Warnings            []Warning       `json:"warnings,omitempty"`
	Error               *ErrorInfo      `json:"error,omitempty"`
	ClarificationNeeded bool            `json:"clarification_needed,omitempty"`
	ClarificationPrompt string          `json:"clarification_prompt,omitempty"`
	Metrics             ResponseMetrics `json:"metrics"`
	GeneratedAt         time.Time       `json:"generated_at"`
}

// SessionContext is the optional prior-turn context kept per conversation.
type SessionContext struct {
	SessionID   string    `json:"session_id"`
	TenantID    string    `json:"tenant_id"`
	LastDomain  string    `json:"last_domain,omitempty"`
	LastQuery   string    `json:"last_query,omitempty"`
	LastEntity  string    `json:"last_entity,omitempty"`
	TurnCount   int       `json:"turn_count"`
	LastUpdated time.Time `json:"last_updated"`
}
