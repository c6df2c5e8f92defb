package dto

// ExportPayload is the document shape submitted to the external accounting
// system. It is captured into the outbox event at enqueue time, so later
// invoice mutation cannot change what gets submitted.
type ExportPayload struct {
	InvoiceID    string       `json:"invoice_id"`
	CustomerName string       `json:"customer_name"`
	ReferenceOne string       `json:"reference_one"`
	ReferenceTwo string       `json:"reference_two"`
	Lines        []ExportLine `json:"lines"`
	Totals       ExportTotals `json:"totals"`
	Currency     string       `json:"currency"`
}

type ExportLine struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	VATCode     string  `json:"vat_code"`
}

type ExportTotals struct {
	Subtotal float64 `json:"subtotal"`
	VATTotal float64 `json:"vat_total"`
	Total    float64 `json:"total"`
}

// ExportEnvelope is what an EXPORT_INVOICE outbox event carries: the target
// system plus the frozen document.
type ExportEnvelope struct {
	TargetSystem string        `json:"target_system"`
	Document     ExportPayload `json:"document"`
}

// InvoiceAnnouncement is the message body published to the invoice-events
// topic by the PUBLISH_INVOICE_EVENT handler.
type InvoiceAnnouncement struct {
	InvoiceID     string `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	Action        string `json:"action"`
}
