package coordinator

// Error and warning codes surfaced in responses. OPTIMIZATION_FAILED is soft:
// it appears as a warning on a successful response, never as a call failure.
const (
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeOrchestrationFailed = "ORCHESTRATION_FAILED"
	ErrCodeDomainAgentFailed   = "DOMAIN_AGENT_FAILED"
	ErrCodeOptimizationFailed  = "OPTIMIZATION_FAILED"
	ErrCodeClarificationNeeded = "CLARIFICATION_NEEDED"
	ErrCodeUnknown             = "UNKNOWN_ERROR"
)

const (
	warnCodeRisk      = "RISK_FLAG"
	warnCodeSynthesis = "SYNTHESIS_WARNING"
	warnCodeOptimizer = "OPTIMIZER_NOTE"
)
