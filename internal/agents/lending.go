package agents

import (
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/catalog"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/schema"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/synth"
)

// NewLendingAgent builds the lending specialist: portfolio-filtered loan
// book analysis, not entity-scoped.
func NewLendingAgent(cat catalog.Provider) *Agent {
	registry := synth.NewRegistry(
		synth.GeneralBuilder{
			Table:        "loans",
			LabelCols:    []string{"loan_reference", "borrower_name", "origination_date"},
			AmountCol:    "outstanding_balance",
			GroupCol:     "borrower_name",
			PortfolioCol: "portfolio",
		},
		synth.AgedItemBuilder{
			Table:        "loans",
			LabelCols:    []string{"borrower_name", "loan_reference"},
			AmountCol:    "outstanding_balance",
			DueDateCol:   "next_payment_date",
			PortfolioCol: "portfolio",
		},
		synth.LargeItemBuilder{
			Table:        "loans",
			LabelCols:    []string{"loan_reference", "borrower_name"},
			AmountCol:    "outstanding_balance",
			PortfolioCol: "portfolio",
		},
		synth.DuplicateBuilder{
			Table:     "loan_payments",
			PayerCol:  "payer_name",
			AmountCol: "amount",
			DateCol:   "payment_date",
		},
	)

	s := synth.New(synth.Config{
		Domain:       catalog.DomainLending,
		EntityScoped: false,
		EntityColumn: "borrower_name",
		Catalog:      cat,
		Schema:       schema.Lending(),
		Registry:     registry,
	})

	return NewAgent(catalog.DomainLending, s)
}
