package entity

import (
	"time"

	"github.com/google/uuid"
)

type Invoice struct {
	ID            uuid.UUID `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	CustomerName  string    `json:"customer_name"`
	ReferenceOne  string    `json:"reference_one"`
	ReferenceTwo  string    `json:"reference_two"`
	Currency      string    `json:"currency"`
	Subtotal      float64   `json:"subtotal"`
	VATTotal      float64   `json:"vat_total"`
	Total         float64   `json:"total"`
	CreatedAt     time.Time `json:"created_at"`
}

type InvoiceLine struct {
	ID          uuid.UUID `json:"id"`
	InvoiceID   uuid.UUID `json:"invoice_id"`
	Description string    `json:"description"`
	Quantity    float64   `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	VATCode     string    `json:"vat_code"`
	LineTotal   float64   `json:"line_total"`
}
