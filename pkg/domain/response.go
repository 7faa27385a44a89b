package domain

// Response is the decoded payload of a domain query.
// Like Fields, it is a closed union: VendorMatches or EventAdvice.
type Response interface {
	Domain() Domain
	sealedResponse()
}

// VendorMatches is the answer of the vendor-matching endpoint.
type VendorMatches struct {
	Services []VendorService `json:"services"`
}

func (VendorMatches) Domain() Domain  { return DomainVendor }
func (VendorMatches) sealedResponse() {}

// VendorService is one matched service offering.
type VendorService struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	BusinessName string    `json:"business_name"`
	BasicPrice   float64   `json:"basic_price"`
	Ratings      []float64 `json:"ratings"`
}

// EventAdvice is the answer of the event-advice endpoint. Every section is optional.
type EventAdvice struct {
	BudgetEstimate *BudgetEstimate `json:"budget_estimate,omitempty"`
	Steps          []string        `json:"steps,omitempty"`
	Considerations []string        `json:"considerations,omitempty"`
}

func (EventAdvice) Domain() Domain  { return DomainEvent }
func (EventAdvice) sealedResponse() {}

// BudgetEstimate is a currency range.
type BudgetEstimate struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}
