package enums

import "fmt"

// DocumentKind names the financial documents a priced line set can belong to.
type DocumentKind string

const (
	DocumentKindQuote        DocumentKind = "quote"
	DocumentKindInvoice      DocumentKind = "invoice"
	DocumentKindIntervention DocumentKind = "intervention"
)

var validDocumentKinds = []DocumentKind{
	DocumentKindQuote,
	DocumentKindInvoice,
	DocumentKindIntervention,
}

// String implements fmt.Stringer.
func (d DocumentKind) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DocumentKind.
func (d DocumentKind) IsValid() bool {
	for _, candidate := range validDocumentKinds {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDocumentKind converts raw input into a DocumentKind.
func ParseDocumentKind(value string) (DocumentKind, error) {
	for _, candidate := range validDocumentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document kind %q", value)
}

// QuoteStatus is the lifecycle of a quote document.
type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "draft"
	QuoteStatusSent      QuoteStatus = "sent"
	QuoteStatusAccepted  QuoteStatus = "accepted"
	QuoteStatusConverted QuoteStatus = "converted"
	QuoteStatusDeclined  QuoteStatus = "declined"
)

var validQuoteStatuses = []QuoteStatus{
	QuoteStatusDraft,
	QuoteStatusSent,
	QuoteStatusAccepted,
	QuoteStatusConverted,
	QuoteStatusDeclined,
}

// String implements fmt.Stringer.
func (q QuoteStatus) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuoteStatus.
func (q QuoteStatus) IsValid() bool {
	for _, candidate := range validQuoteStatuses {
		if candidate == q {
			return true
		}
	}
	return false
}

// Convertible reports whether the quote may still be turned into another
// document.
func (q QuoteStatus) Convertible() bool {
	return q == QuoteStatusSent || q == QuoteStatusAccepted
}

// CanTransitionTo validates a manual quote status change. Converted is never
// a manual target; conversion sets it.
func (q QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	switch q {
	case QuoteStatusDraft:
		return target == QuoteStatusSent || target == QuoteStatusDeclined
	case QuoteStatusSent:
		return target == QuoteStatusAccepted || target == QuoteStatusDeclined
	case QuoteStatusAccepted:
		return target == QuoteStatusDeclined
	default:
		return false
	}
}

// ParseQuoteStatus converts raw input into a QuoteStatus.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	for _, candidate := range validQuoteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote status %q", value)
}

// InvoiceStatus is the lifecycle of an invoice document.
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
	InvoiceStatusVoid  InvoiceStatus = "void"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusSent,
	InvoiceStatusPaid,
	InvoiceStatusVoid,
}

// String implements fmt.Stringer.
func (i InvoiceStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InvoiceStatus.
func (i InvoiceStatus) IsValid() bool {
	for _, candidate := range validInvoiceStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInvoiceStatus converts raw input into an InvoiceStatus.
func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	for _, candidate := range validInvoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice status %q", value)
}
