package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"invoicescan/internal/model"
)

const (
	OutcomeOK         = "ok"
	OutcomeNoText     = "no_text"
	OutcomeRejected   = "rejected"
	OutcomeWriteError = "write_error"
	OutcomeError      = "error"
)

// Metrics counts processed documents by outcome and extracted fields by name.
// A nil *Metrics records nothing.
type Metrics struct {
	processed *prometheus.CounterVec
	fields    *prometheus.CounterVec
}

// NewMetrics creates the service counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		processed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoicescan_documents_processed_total",
				Help: "Total number of uploaded documents by processing outcome.",
			},
			[]string{"outcome"},
		),
		fields: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoicescan_fields_extracted_total",
				Help: "Total number of invoice fields found in processed documents.",
			},
			[]string{"field"},
		),
	}
	for _, c := range []prometheus.Collector{m.processed, m.fields} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeFields(f model.InvoiceFields) {
	if m == nil {
		return
	}
	if f.InvoiceNumber != nil {
		m.fields.WithLabelValues("invoice_number").Inc()
	}
	if f.InvoiceDate != nil {
		m.fields.WithLabelValues("invoice_date").Inc()
	}
	if f.TotalAmount != nil {
		m.fields.WithLabelValues("total_amount").Inc()
	}
}
