package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/aretw0/concierge/pkg/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Fixed texts used when a payload has nothing to show.
const (
	NoVendorsMessage = "Sorry, I couldn't find any vendors matching your request. Try another budget or location."
	NoAdviceMessage  = "Sorry, I couldn't put together advice for this event right now. Ask me anything about it below."
)

// Formatter turns domain responses into message text.
type Formatter struct {
	// ServiceLink is the link target prefix for a vendor service; the service ID is appended.
	ServiceLink string
	// Currency labels prices whose payload does not carry one.
	Currency string
}

// New returns a Formatter with the marketplace defaults.
func New() *Formatter {
	return &Formatter{
		ServiceLink: "/services/",
		Currency:    "ETB",
	}
}

// Render formats any domain response and never returns an empty string.
func (f *Formatter) Render(resp domain.Response) string {
	var text string
	switch r := resp.(type) {
	case domain.VendorMatches:
		text = f.Vendors(r)
		if text == "" {
			text = NoVendorsMessage
		}
	case domain.EventAdvice:
		text = f.Event(r)
		if text == "" {
			text = NoAdviceMessage
		}
	default:
		text = NoAdviceMessage
	}
	return text
}

// Vendors renders one enumerated block per matched service.
func (f *Formatter) Vendors(m domain.VendorMatches) string {
	return f.VendorDocument(m).Markdown()
}

// VendorDocument builds the document model for a vendor match.
func (f *Formatter) VendorDocument(m domain.VendorMatches) Document {
	section := Section{
		Title: "Here are the vendors that match your request:",
		Style: Numbered,
	}
	for _, svc := range m.Services {
		section.Items = append(section.Items, Item{
			Text: fmt.Sprintf("[%s](%s%s)", svc.Name, f.ServiceLink, svc.ID),
			Details: []string{
				"Category: " + orDash(svc.Category),
				"Business: " + orDash(svc.BusinessName),
				"Price: " + f.money(svc.BasicPrice, ""),
				"Rating: " + Rating(svc.Ratings),
			},
		})
	}

	var doc Document
	doc.Add(section)
	return doc
}

// Event renders the optional estimate, steps and considerations, in that order.
func (f *Formatter) Event(a domain.EventAdvice) string {
	return f.EventDocument(a).Markdown()
}

// EventDocument builds the document model for event advice.
func (f *Formatter) EventDocument(a domain.EventAdvice) Document {
	var doc Document

	if est := a.BudgetEstimate; est != nil {
		doc.Add(Section{
			Style: Plain,
			Items: []Item{{Text: fmt.Sprintf("Estimated budget: %s – %s",
				f.money(est.Min, est.Currency), f.money(est.Max, est.Currency))}},
		})
	}

	doc.Add(Section{
		Title: "Planning steps:",
		Style: Numbered,
		Items: items(a.Steps),
	})

	doc.Add(Section{
		Title: "Things to consider:",
		Style: Bulleted,
		Items: items(a.Considerations),
	})

	return doc
}

// Rating renders "avg (count)", or "N/A (0)" when there are no ratings.
func Rating(ratings []float64) string {
	if len(ratings) == 0 {
		return "N/A (0)"
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	return fmt.Sprintf("%.1f (%d)", sum/float64(len(ratings)), len(ratings))
}

func (f *Formatter) money(amount float64, currency string) string {
	if currency == "" {
		currency = f.Currency
	}
	var num string
	if amount == math.Trunc(amount) {
		num = printer.Sprintf("%d", int64(amount))
	} else {
		num = printer.Sprintf("%.2f", amount)
	}
	if currency == "" {
		return num
	}
	return num + " " + currency
}

func items(texts []string) []Item {
	var out []Item
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, Item{Text: t})
		}
	}
	return out
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
