package coordinator

import (
	"sync"
	"time"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/metrics"
)

type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

const (
	healthAlpha      = 0.1
	healthyFloor     = 90.0
	degradedFloor    = 70.0
	initialSuccessPc = 100.0
)

type HealthStatus struct {
	Name          string      `json:"name"`
	Status        HealthState `json:"status"`
	SuccessRate   float64     `json:"success_rate"`
	AvgResponseMS float64     `json:"avg_response_ms"`
	LastChecked   time.Time   `json:"last_checked"`
	LastError     string      `json:"last_error,omitempty"`
}

// HealthMonitor keeps an exponential moving average of success rate and
// response time per collaborator. Recording is cheap and lock-scoped so it
// never stalls the request path.
type HealthMonitor struct {
	mu       sync.Mutex
	statuses map[string]*HealthStatus
	clock    func() time.Time
}

func NewHealthMonitor() *HealthMonitor {
	return &HealthMonitor{
		statuses: make(map[string]*HealthStatus),
		clock:    time.Now,
	}
}

func (m *HealthMonitor) RecordSuccess(name string, elapsed time.Duration) {
	m.record(name, true, elapsed, "")
}

func (m *HealthMonitor) RecordFailure(name string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	m.record(name, false, 0, msg)
}

func (m *HealthMonitor) record(name string, success bool, elapsed time.Duration, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[name]
	if !ok {
		status = &HealthStatus{Name: name, SuccessRate: initialSuccessPc}
		m.statuses[name] = status
	}

	sample := 0.0
	if success {
		sample = 100.0
		status.AvgResponseMS = ema(status.AvgResponseMS, float64(elapsed.Milliseconds()))
		status.LastError = ""
	} else {
		status.LastError = errMsg
	}
	status.SuccessRate = ema(status.SuccessRate, sample)
	status.Status = stateFor(status.SuccessRate)
	status.LastChecked = m.clock()
	metrics.CollaboratorSuccessRate.WithLabelValues(name).Set(status.SuccessRate)
}

// Snapshot returns a copy of every tracked collaborator's status.
func (m *HealthMonitor) Snapshot() map[string]HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]HealthStatus, len(m.statuses))
	for name, status := range m.statuses {
		out[name] = *status
	}
	return out
}

func ema(current, sample float64) float64 {
	if current == 0 {
		return sample
	}
	return healthAlpha*sample + (1-healthAlpha)*current
}

func stateFor(successRate float64) HealthState {
	switch {
	case successRate >= healthyFloor:
		return HealthHealthy
	case successRate >= degradedFloor:
		return HealthDegraded
	default:
		return HealthUnhealthy
	}
}
