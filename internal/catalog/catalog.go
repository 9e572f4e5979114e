package catalog

import (
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
)

const (
	DomainAudit   = "audit"
	DomainLending = "lending"
)

// Template is a pre-authored, parameterized query owned by the catalog.
// Synthesizers read templates and substitute parameters; they never mutate
// catalog entries.
type Template struct {
	ID         string
	Name       string
	FocusArea  models.FocusArea
	Example    string
	SQL        string
	Parameters []string
}

type Provider interface {
	Templates(domain string) []Template
}

type Static struct {
	byDomain map[string][]Template
}

func NewStatic() *Static {
	return &Static{
		byDomain: map[string][]Template{
			DomainAudit:   auditTemplates(),
			DomainLending: lendingTemplates(),
		},
	}
}

func (s *Static) Templates(domain string) []Template {
	return s.byDomain[domain]
}
