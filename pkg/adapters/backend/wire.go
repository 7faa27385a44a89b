package backend

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/aretw0/concierge/pkg/domain"
)

// flexString accepts JSON strings and numbers; backends disagree on id types.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// flexFloat accepts JSON numbers and numeric strings such as "15000.00".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*f = flexFloat(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

type vendorMatchResponse struct {
	Data *struct {
		Services []serviceDTO `json:"services"`
	} `json:"data"`
}

type serviceDTO struct {
	ID          flexString `json:"id"`
	Name        string     `json:"name"`
	SubCategory struct {
		Name string `json:"name"`
	} `json:"subCategory"`
	Vendor struct {
		BusinessName string `json:"businessName"`
	} `json:"vendor"`
	BasicPrice    flexFloat `json:"basicPrice"`
	ReviewService []struct {
		Rating flexFloat `json:"rating"`
	} `json:"reviewService"`
}

func (s serviceDTO) toDomain() domain.VendorService {
	ratings := make([]float64, 0, len(s.ReviewService))
	for _, r := range s.ReviewService {
		ratings = append(ratings, float64(r.Rating))
	}
	return domain.VendorService{
		ID:           string(s.ID),
		Name:         s.Name,
		Category:     s.SubCategory.Name,
		BusinessName: s.Vendor.BusinessName,
		BasicPrice:   float64(s.BasicPrice),
		Ratings:      ratings,
	}
}

type eventAdviceResponse struct {
	BudgetEstimate *struct {
		Min      flexFloat `json:"min"`
		Max      flexFloat `json:"max"`
		Currency string    `json:"currency"`
	} `json:"budgetEstimate"`
	Steps          []string `json:"steps"`
	Considerations []string `json:"considerations"`
}

func (r eventAdviceResponse) toDomain() domain.EventAdvice {
	advice := domain.EventAdvice{
		Steps:          r.Steps,
		Considerations: r.Considerations,
	}
	if est := r.BudgetEstimate; est != nil {
		advice.BudgetEstimate = &domain.BudgetEstimate{
			Min:      float64(est.Min),
			Max:      float64(est.Max),
			Currency: est.Currency,
		}
	}
	return advice
}

type eventAdviceRequest struct {
	Message string `json:"message,omitempty"`
	domain.EventFields
}

type replyResponse struct {
	Reply *string `json:"reply"`
}
