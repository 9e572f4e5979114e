package agents

import (
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/catalog"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/schema"
	"github.com/validis-group-holdings/validis-agent-psc-sub000/internal/synth"
)

// NewAuditAgent builds the audit specialist: entity-scoped, general-ledger
// tables, the full fragment set.
func NewAuditAgent(cat catalog.Provider) *Agent {
	registry := synth.NewRegistry(
		synth.GeneralBuilder{
			Table:     "gl_transactions",
			LabelCols: []string{"transaction_id", "account_code", "account_name", "description", "transaction_date"},
			AmountCol: "amount",
			GroupCol:  "account_code",
		},
		synth.VarianceBuilder{
			Table:     "gl_transactions",
			KeyCol:    "account_code",
			NameCol:   "account_name",
			AmountCol: "amount",
			PeriodCol: "period_offset",
		},
		synth.LargeItemBuilder{
			Table:     "gl_transactions",
			LabelCols: []string{"transaction_id", "account_code", "description", "transaction_date"},
			AmountCol: "amount",
		},
		synth.AgedItemBuilder{
			Table:      "receivables",
			LabelCols:  []string{"customer_name", "invoice_number"},
			AmountCol:  "amount",
			DueDateCol: "due_date",
		},
		synth.UnusualEntryBuilder{
			Table:        "journal_entries",
			LabelCols:    []string{"journal_id", "posted_by", "posting_date"},
			AmountCol:    "amount",
			EntryTypeCol: "entry_type",
		},
		synth.DuplicateBuilder{
			Table:     "payments",
			PayerCol:  "payee_name",
			AmountCol: "amount",
			DateCol:   "payment_date",
		},
		synth.CutoffBuilder{
			Table:      "gl_transactions",
			LabelCols:  []string{"transaction_id", "account_code"},
			AmountCol:  "amount",
			TxnDateCol: "transaction_date",
			PostDueCol: "posting_date",
		},
	)

	s := synth.New(synth.Config{
		Domain:       catalog.DomainAudit,
		EntityScoped: true,
		EntityColumn: "client_name",
		Catalog:      cat,
		Schema:       schema.Audit(),
		Registry:     registry,
	})

	return NewAgent(catalog.DomainAudit, s)
}
