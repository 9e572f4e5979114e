package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/catalog"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/models"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/pkg/logger"
)

var lendingSignals = []string{
	"loan", "borrower", "portfolio", "arrears", "facility", "covenant",
	"lending", "repayment", "drawdown", "exposure",
}

var auditSignals = []string{
	"journal", "ledger", "audit", "variance", "duplicate", "cutoff",
	"receivable", "payment", "transaction", "accrual", "posting", "entry",
}

// KeywordRouter classifies free text by domain signal words. It tokenizes
// with prose and surfaces detected organization entities as a hint for
// entity-scoped domains.
type KeywordRouter struct{}

func NewKeywordRouter() *KeywordRouter {
	return &KeywordRouter{}
}

func (r *KeywordRouter) Classify(ctx context.Context, text, sessionID, userID string) (*models.RoutingResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize query: %w", err)
	}

	var tokens []string
	for _, tok := range doc.Tokens() {
		tokens = append(tokens, strings.ToLower(tok.Text))
	}

	lendingHits := countSignals(tokens, lendingSignals)
	auditHits := countSignals(tokens, auditSignals)

	var entityHint string
	for _, ent := range doc.Entities() {
		if ent.Label == "ORG" || ent.Label == "GPE" {
			entityHint = ent.Text
			break
		}
	}

	result := &models.RoutingResult{Intent: "financial_analysis"}

	switch {
	case lendingHits == 0 && auditHits == 0:
		result.RequiresClarification = true
		result.ClarificationPrompt = "Should this be analyzed against the audit ledger data or the lending portfolio?"
		result.Confidence = 0.2
		result.Explanation = "No domain signal words detected."
	case lendingHits > auditHits:
		result.Domain = catalog.DomainLending
		result.Confidence = confidenceFor(lendingHits, auditHits)
		result.Explanation = explanationFor(catalog.DomainLending, lendingHits, entityHint)
	default:
		result.Domain = catalog.DomainAudit
		result.Confidence = confidenceFor(auditHits, lendingHits)
		result.Explanation = explanationFor(catalog.DomainAudit, auditHits, entityHint)
	}

	logger.Debug("Query classified",
		zap.String("session_id", sessionID),
		zap.String("domain", result.Domain),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("clarification", result.RequiresClarification),
	)

	return result, nil
}

func (r *KeywordRouter) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func countSignals(tokens, signals []string) int {
	hits := 0
	for _, tok := range tokens {
		for _, sig := range signals {
			if strings.HasPrefix(tok, sig) {
				hits++
				break
			}
		}
	}
	return hits
}

func confidenceFor(hits, otherHits int) float64 {
	conf := 0.5 + 0.1*float64(hits-otherHits)
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

func explanationFor(domain string, hits int, entityHint string) string {
	explanation := fmt.Sprintf("Matched %d %s signal words.", hits, domain)
	if entityHint != "" {
		explanation += fmt.Sprintf(" Detected entity %q.", entityHint)
	}
	return explanation
}
