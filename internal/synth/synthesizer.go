package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/catalog"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/schema"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/logger"
)

const (
	templateConfidence = 0.95
	dynamicConfidence  = 0.80
	autoFixDiscount    = 0.85
)

var (
	ErrEmptyQuery    = errors.New("query text is required")
	ErrEmptyTenant   = errors.New("tenant id is required")
	ErrMissingEntity = errors.New("entity name is required for this domain")
)

type Config struct {
	Domain          string
	EntityScoped    bool
	EntityColumn    string
	Catalog         catalog.Provider
	Schema          *schema.Provider
	Registry        *Registry
	DefaultRowLimit int
}

// Synthesizer turns a request plus its focus context into validated,
// tenant-isolated SQL with confidence, metadata and risk annotations.
type Synthesizer struct {
	cfg Config
}

func New(cfg Config) *Synthesizer {
	if cfg.EntityColumn == "" {
		cfg.EntityColumn = "client_name"
	}
	if cfg.DefaultRowLimit == 0 {
		cfg.DefaultRowLimit = 1000
	}
	return &Synthesizer{cfg: cfg}
}

func (s *Synthesizer) Domain() string {
	return s.cfg.Domain
}

func (s *Synthesizer) Synthesize(ctx context.Context, req *models.QueryRequest) (*models.SynthesisResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	if strings.TrimSpace(req.TenantID) == "" {
		return nil, ErrEmptyTenant
	}
	if s.cfg.EntityScoped && strings.TrimSpace(req.EntityName) == "" {
		return nil, ErrMissingEntity
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fc := Analyze(req.Query)

	result := &models.SynthesisResult{}

	tmpl, matched := matchTemplate(req.Query, fc, s.cfg.Catalog.Templates(s.cfg.Domain))
	if matched {
		result.SQL = adaptTemplate(tmpl, req)
		result.Confidence = templateConfidence
		result.TemplateID = tmpl.ID
		result.Explanation = fmt.Sprintf("Matched the %q template (%s focus).", tmpl.Name, tmpl.FocusArea)
	} else {
		result.SQL = s.buildDynamic(req, fc)
		result.Confidence = dynamicConfidence
		result.Explanation = fmt.Sprintf("No catalog template matched; built a %s query from composable fragments.", fc.FocusAreas[0])
	}

	validation := s.validate(result.SQL, req)
	if !validation.Valid {
		logger.Warn("Synthesized SQL failed validation, applying auto-fix",
			zap.String("domain", s.cfg.Domain),
			zap.Strings("errors", validation.Errors),
		)
		result.SQL = s.autoFix(result.SQL, validation, req)
		result.Confidence *= autoFixDiscount
		validation = s.validate(result.SQL, req)
	}

	for _, code := range validation.Warnings {
		result.Warnings = append(result.Warnings, warningMessage(code))
	}
	result.PerformanceNotes = performanceNotes(validation)

	result.Tables, result.Columns = extractMetadata(result.SQL)
	result.Risks = identifyRisks(fc)

	if !req.IncludeExplanation {
		result.Explanation = ""
	}

	logger.Debug("Query synthesized",
		zap.String("domain", s.cfg.Domain),
		zap.String("template", result.TemplateID),
		zap.Float64("confidence", result.Confidence),
		zap.Int("performance_score", validation.PerformanceScore),
	)

	return result, nil
}

func warningMessage(code string) string {
	switch code {
	case WarnMissingUploadScope:
		return "query does not scope rows to an upload_id; results may span imports"
	case WarnHeaderWithoutDetail:
		return "header table is joined without its detail table"
	case WarnMissingMateriality:
		return "no materiality threshold found; immaterial items will be included"
	case WarnMissingRowLimit:
		return "no row limit on the outer query"
	default:
		return code
	}
}

func performanceNotes(v ValidationResult) string {
	notes := fmt.Sprintf("Performance score %d/10.", v.PerformanceScore)
	if v.hasWarning(WarnMissingUploadScope) {
		notes += " Scoping to the latest upload would cut the scanned row count."
	}
	if v.hasWarning(WarnMissingRowLimit) {
		notes += " Consider a row limit for large result sets."
	}
	return notes
}
