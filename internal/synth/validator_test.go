package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/catalog"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/schema"
)

func auditSynthesizer() *Synthesizer {
	return New(Config{
		Domain:       catalog.DomainAudit,
		EntityScoped: true,
		Catalog:      catalog.NewStatic(),
		Schema:       schema.Audit(),
		Registry:     auditTestRegistry(),
	})
}

func auditTestRegistry() *Registry {
	return NewRegistry(
		GeneralBuilder{
			Table:     "gl_transactions",
			LabelCols: []string{"transaction_id", "account_code", "description"},
			AmountCol: "amount",
			GroupCol:  "account_code",
		},
		DuplicateBuilder{
			Table:     "payments",
			PayerCol:  "payee_name",
			AmountCol: "amount",
			DateCol:   "payment_date",
		},
		VarianceBuilder{
			Table:     "gl_transactions",
			KeyCol:    "account_code",
			NameCol:   "account_name",
			AmountCol: "amount",
			PeriodCol: "period_offset",
		},
	)
}

func TestValidateMissingTenantFilter(t *testing.T) {
	s := auditSynthesizer()
	req := &models.QueryRequest{TenantID: "t1", EntityName: "ABC Company"}

	v := s.validate("SELECT t.amount FROM gl_transactions t", req)

	assert.False(t, v.Valid)
	assert.True(t, v.hasError(ErrMissingTenantFilter))
	assert.True(t, v.hasError(ErrMissingEntityFilter))
}

func TestValidateWarningsAndScore(t *testing.T) {
	s := auditSynthesizer()
	req := &models.QueryRequest{TenantID: "t1", EntityName: "ABC Company"}

	// Tenant and entity filters present, every soft signal missing:
	// no upload scope (-2), no row limit (-1), DISTINCT with GROUP BY (-1),
	// NOT IN subquery (-2), no scoping CTE (-1).
	sql := `SELECT DISTINCT t.account_code
FROM gl_transactions t
WHERE t.tenant_id = 't1'
  AND LOWER(t.client_name) = LOWER('ABC Company')
  AND t.account_code NOT IN (SELECT account_code FROM excluded)
GROUP BY t.account_code`

	v := s.validate(sql, req)

	assert.True(t, v.Valid)
	assert.True(t, v.hasWarning(WarnMissingUploadScope))
	assert.True(t, v.hasWarning(WarnMissingRowLimit))
	assert.True(t, v.hasWarning(WarnMissingMateriality))
	assert.Equal(t, 3, v.PerformanceScore)
}

func TestValidateHeaderWithoutDetail(t *testing.T) {
	s := auditSynthesizer()
	req := &models.QueryRequest{TenantID: "t1", EntityName: "ABC Company"}

	sql := `SELECT h.batch_reference
FROM transaction_headers h
WHERE h.tenant_id = 't1' AND LOWER(h.client_name) = LOWER('ABC Company')`

	v := s.validate(sql, req)
	assert.True(t, v.hasWarning(WarnHeaderWithoutDetail))

	joined := sql + " JOIN transaction_lines l ON l.header_id = h.header_id"
	v = s.validate(joined, req)
	assert.False(t, v.hasWarning(WarnHeaderWithoutDetail))
}

func TestValidateCleanTemplateScoresHigh(t *testing.T) {
	s := auditSynthesizer()
	req := &models.QueryRequest{TenantID: "t1", EntityName: "ABC Company"}

	tmpl := catalog.NewStatic().Templates(catalog.DomainAudit)[0]
	sql := adaptTemplate(tmpl, req)

	v := s.validate(sql, req)
	require.True(t, v.Valid)
	assert.False(t, v.hasWarning(WarnMissingUploadScope))
	assert.False(t, v.hasWarning(WarnMissingMateriality))
	// Only the row limit is missing.
	assert.Equal(t, 9, v.PerformanceScore)
}

func TestAutoFixRepairsAndIsIdempotent(t *testing.T) {
	s := auditSynthesizer()
	req := &models.QueryRequest{Query: "q", TenantID: "t1", EntityName: "ABC Company", MaxResults: 50}

	sql := "SELECT t.amount FROM gl_transactions t WHERE t.amount > 0"

	v := s.validate(sql, req)
	require.False(t, v.Valid)

	fixed := s.autoFix(sql, v, req)
	v2 := s.validate(fixed, req)
	assert.True(t, v2.Valid)
	assert.Contains(t, fixed, "tenant_id = 't1'")
	assert.Contains(t, fixed, "LOWER(client_name) = LOWER('ABC Company')")
	assert.Contains(t, fixed, "TOP (50)")

	// Re-running on repaired SQL changes nothing.
	assert.Equal(t, fixed, s.autoFix(fixed, v2, req))
}

func TestAutoFixAppendsWhereWhenAbsent(t *testing.T) {
	s := auditSynthesizer()
	req := &models.QueryRequest{Query: "q", TenantID: "t1", EntityName: "ABC Company"}

	sql := "SELECT t.amount FROM gl_transactions t"
	v := s.validate(sql, req)
	fixed := s.autoFix(sql, v, req)

	assert.Contains(t, fixed, "WHERE")
	assert.Contains(t, fixed, "tenant_id = 't1'")
	assert.Contains(t, fixed, "LOWER(client_name) = LOWER('ABC Company')")
	v2 := s.validate(fixed, req)
	assert.True(t, v2.Valid)
}

func TestAutoFixNeverLoosensExistingFilters(t *testing.T) {
	s := auditSynthesizer()
	req := &models.QueryRequest{Query: "q", TenantID: "t1", EntityName: "ABC Company"}

	sql := "SELECT t.amount FROM gl_transactions t WHERE t.amount > 500"
	v := s.validate(sql, req)
	fixed := s.autoFix(sql, v, req)

	assert.Contains(t, fixed, "t.amount > 500")
}
