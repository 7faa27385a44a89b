package domain

// Fields is the set of answers collected for the active domain.
// It is a closed union: only EventFields and VendorFields implement it.
type Fields interface {
	Domain() Domain
	sealed()
}

// EventFields are collected by the Event domain.
type EventFields struct {
	EventType  string `json:"eventType"`
	GuestCount int    `json:"guestCount"`
	Location   string `json:"location"`
}

func (EventFields) Domain() Domain { return DomainEvent }
func (EventFields) sealed()        {}

// VendorFields are collected by the Vendor domain.
type VendorFields struct {
	ServiceType string `json:"serviceType"`
	Budget      int    `json:"budget"`
	Location    string `json:"location"`
}

func (VendorFields) Domain() Domain { return DomainVendor }
func (VendorFields) sealed()        {}

// EmptyFields returns the zero field set for a domain.
func EmptyFields(d Domain) (Fields, error) {
	switch d {
	case DomainEvent:
		return EventFields{}, nil
	case DomainVendor:
		return VendorFields{}, nil
	}
	return nil, ErrUnknownDomain
}
