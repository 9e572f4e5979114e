package agents

import (
	"context"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/synth"
)

// Agent is a thin domain wrapper: it binds a name to a synthesizer
// configured with that domain's catalog, schema and fragment set.
type Agent struct {
	name  string
	synth *synth.Synthesizer
}

func NewAgent(name string, s *synth.Synthesizer) *Agent {
	return &Agent{name: name, synth: s}
}

func (a *Agent) Name() string {
	return a.name
}

func (a *Agent) ProcessQuery(ctx context.Context, req *models.QueryRequest) (*models.SynthesisResult, error) {
	return a.synth.Synthesize(ctx, req)
}

// Ping is the cheap call used by the health prober.
func (a *Agent) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
