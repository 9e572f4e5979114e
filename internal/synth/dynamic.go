package synth

import (
	"fmt"
	"strings"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
)

// namedCTE is an extra common table expression emitted after the scoping CTE.
type namedCTE struct {
	Name string
	Body string
}

// fragmentParts is what a focus-area builder contributes to the assembled
// query. The synthesizer owns the scoping CTE, the tenant filter, and final
// assembly; builders own everything focus-specific.
type fragmentParts struct {
	CTEs    []namedCTE
	Columns []string
	From    string
	Alias   string
	Joins   []string
	Where   []string
	GroupBy []string
	Having  []string
	OrderBy string
}

// FragmentBuilder produces the focus-area fragment for dynamic synthesis.
// New focus areas register a builder; the dispatcher never changes.
type FragmentBuilder interface {
	FocusArea() models.FocusArea
	Build(req *models.QueryRequest, fc FocusContext) fragmentParts
}

type Registry struct {
	builders map[models.FocusArea]FragmentBuilder
	fallback FragmentBuilder
}

func NewRegistry(fallback FragmentBuilder, builders ...FragmentBuilder) *Registry {
	r := &Registry{
		builders: make(map[models.FocusArea]FragmentBuilder),
		fallback: fallback,
	}
	for _, b := range builders {
		r.builders[b.FocusArea()] = b
	}
	return r
}

func (r *Registry) builderFor(area models.FocusArea) FragmentBuilder {
	if b, ok := r.builders[area]; ok {
		return b
	}
	return r.fallback
}

// buildDynamic assembles a query from the scoping fragment, the focus-area
// fragment, and the final select/join/where/order stage.
func (s *Synthesizer) buildDynamic(req *models.QueryRequest, fc FocusContext) string {
	builder := s.cfg.Registry.builderFor(fc.FocusAreas[0])
	frag := builder.Build(req, fc)

	var b strings.Builder

	b.WriteString("WITH latest_upload AS (\n")
	b.WriteString(s.scopingCTE(req))
	b.WriteString("\n)")
	for _, cte := range frag.CTEs {
		b.WriteString(",\n")
		b.WriteString(cte.Name)
		b.WriteString(" AS (\n")
		b.WriteString(cte.Body)
		b.WriteString("\n)")
	}

	b.WriteString("\nSELECT ")
	if req.MaxResults > 0 {
		fmt.Fprintf(&b, "TOP (%d) ", req.MaxResults)
	}
	b.WriteString(strings.Join(frag.Columns, ",\n       "))

	fmt.Fprintf(&b, "\nFROM %s %s", frag.From, frag.Alias)
	fmt.Fprintf(&b, "\nJOIN latest_upload lu ON %s.upload_id = lu.upload_id", frag.Alias)
	for _, join := range frag.Joins {
		b.WriteString("\n")
		b.WriteString(join)
	}

	conditions := []string{fmt.Sprintf("%s.tenant_id = %s", frag.Alias, quoteLiteral(req.TenantID))}
	conditions = append(conditions, frag.Where...)
	b.WriteString("\nWHERE ")
	b.WriteString(strings.Join(conditions, "\n  AND "))

	if len(frag.GroupBy) > 0 {
		b.WriteString("\nGROUP BY ")
		b.WriteString(strings.Join(frag.GroupBy, ", "))
	}
	if len(frag.Having) > 0 {
		b.WriteString("\nHAVING ")
		b.WriteString(strings.Join(frag.Having, " AND "))
	}
	if frag.OrderBy != "" {
		b.WriteString("\nORDER BY ")
		b.WriteString(frag.OrderBy)
	}

	return b.String()
}

// scopingCTE resolves the most recent upload for the tenant (and entity when
// the domain is entity-scoped).
func (s *Synthesizer) scopingCTE(req *models.QueryRequest) string {
	var b strings.Builder
	b.WriteString("    SELECT TOP 1 upload_id\n")
	b.WriteString("    FROM uploads\n")
	fmt.Fprintf(&b, "    WHERE tenant_id = %s", quoteLiteral(req.TenantID))
	if s.cfg.EntityScoped && req.EntityName != "" {
		fmt.Fprintf(&b, "\n      AND LOWER(%s) = LOWER(%s)", s.cfg.EntityColumn, quoteLiteral(req.EntityName))
	}
	b.WriteString("\n    ORDER BY upload_date DESC")
	return b.String()
}
