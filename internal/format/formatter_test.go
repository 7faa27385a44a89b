package format_test

import (
	"strings"
	"testing"

	"github.com/aretw0/concierge/internal/format"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVendors_RendersEnumeratedBlocks(t *testing.T) {
	f := format.New()
	out := f.Vendors(domain.VendorMatches{Services: []domain.VendorService{
		{ID: "s1", Name: "Golden Lens", Category: "Photography", BusinessName: "Golden Studio", BasicPrice: 150000, Ratings: []float64{4, 5}},
		{ID: "s2", Name: "Quick Shots", Category: "Photography", BusinessName: "QS PLC", BasicPrice: 99999},
	}})

	expected := strings.Join([]string{
		"Here are the vendors that match your request:",
		"1. [Golden Lens](/services/s1)",
		"   Category: Photography",
		"   Business: Golden Studio",
		"   Price: 150,000 ETB",
		"   Rating: 4.5 (2)",
		"2. [Quick Shots](/services/s2)",
		"   Category: Photography",
		"   Business: QS PLC",
		"   Price: 99,999 ETB",
		"   Rating: N/A (0)",
	}, "\n")
	assert.Equal(t, expected, out)
}

func TestRating_EmptyListIsNotApplicable(t *testing.T) {
	assert.Equal(t, "N/A (0)", format.Rating(nil))
	assert.Equal(t, "N/A (0)", format.Rating([]float64{}))
	assert.Equal(t, "3.0 (3)", format.Rating([]float64{2, 3, 4}))
}

func TestEvent_StepsOnly(t *testing.T) {
	f := format.New()
	out := f.Event(domain.EventAdvice{Steps: []string{"Book the venue", "Send invitations"}})

	assert.Equal(t, "Planning steps:\n1. Book the venue\n2. Send invitations", out)
}

func TestEvent_SectionOrder(t *testing.T) {
	f := format.New()
	doc := f.EventDocument(domain.EventAdvice{
		Considerations: []string{"Rainy season in July"},
		Steps:          []string{"Book the venue"},
		BudgetEstimate: &domain.BudgetEstimate{Min: 100000, Max: 250000, Currency: "ETB"},
	})

	require.Len(t, doc.Sections, 3)
	assert.Equal(t, format.Plain, doc.Sections[0].Style)
	assert.Equal(t, format.Numbered, doc.Sections[1].Style)
	assert.Equal(t, format.Bulleted, doc.Sections[2].Style)

	expected := "Estimated budget: 100,000 ETB – 250,000 ETB\n\n" +
		"Planning steps:\n1. Book the venue\n\n" +
		"Things to consider:\n• Rainy season in July"
	assert.Equal(t, expected, doc.Markdown())
}

func TestEvent_BlankEntriesAreDropped(t *testing.T) {
	f := format.New()
	doc := f.EventDocument(domain.EventAdvice{Steps: []string{" ", ""}, Considerations: []string{"Parking"}})

	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Things to consider:\n• Parking", doc.Markdown())
}

func TestRender_Fallbacks(t *testing.T) {
	f := format.New()
	assert.Equal(t, format.NoVendorsMessage, f.Render(domain.VendorMatches{}))
	assert.Equal(t, format.NoAdviceMessage, f.Render(domain.EventAdvice{}))
}
