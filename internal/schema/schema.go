package schema

// Provider is a read-only lookup of table metadata for one domain. The
// synthesizer consults it during validation; nothing in the pipeline writes
// to it.
type Provider struct {
	tables       map[string][]string
	headerDetail map[string]string
}

type Config struct {
	Tables       map[string][]string
	HeaderDetail map[string]string
}

func NewProvider(cfg Config) *Provider {
	return &Provider{
		tables:       cfg.Tables,
		headerDetail: cfg.HeaderDetail,
	}
}

func (p *Provider) Columns(table string) ([]string, bool) {
	cols, ok := p.tables[table]
	return cols, ok
}

func (p *Provider) HasTable(table string) bool {
	_, ok := p.tables[table]
	return ok
}

// HeaderDetailPairs maps header tables to the detail table that should be
// joined alongside them.
func (p *Provider) HeaderDetailPairs() map[string]string {
	return p.headerDetail
}

func Audit() *Provider {
	return NewProvider(Config{
		Tables: map[string][]string{
			"uploads":             {"upload_id", "tenant_id", "client_name", "upload_date", "period_start", "period_end", "status"},
			"gl_transactions":     {"transaction_id", "upload_id", "tenant_id", "account_code", "account_name", "description", "transaction_date", "posting_date", "period_offset", "amount", "entry_type"},
			"journal_entries":     {"journal_id", "upload_id", "tenant_id", "entry_type", "posted_by", "posting_date", "amount"},
			"payments":            {"payment_id", "upload_id", "tenant_id", "payee_name", "amount", "payment_date"},
			"receivables":         {"invoice_number", "upload_id", "tenant_id", "customer_name", "amount", "due_date"},
			"transaction_headers": {"header_id", "upload_id", "tenant_id", "batch_reference", "posted_by", "posting_date"},
			"transaction_lines":   {"line_id", "header_id", "upload_id", "tenant_id", "account_code", "amount"},
		},
		HeaderDetail: map[string]string{
			"transaction_headers": "transaction_lines",
		},
	})
}

func Lending() *Provider {
	return NewProvider(Config{
		Tables: map[string][]string{
			"uploads":         {"upload_id", "tenant_id", "client_name", "upload_date", "period_start", "period_end", "status"},
			"loans":           {"loan_reference", "upload_id", "tenant_id", "borrower_name", "portfolio", "outstanding_balance", "next_payment_date", "origination_date"},
			"loan_payments":   {"payment_id", "upload_id", "tenant_id", "loan_reference", "payer_name", "amount", "payment_date"},
			"invoice_headers": {"header_id", "upload_id", "tenant_id", "debtor_name", "issue_date"},
			"invoice_lines":   {"line_id", "header_id", "upload_id", "tenant_id", "amount", "due_date"},
		},
		HeaderDetail: map[string]string{
			"invoice_headers": "invoice_lines",
		},
	})
}
