package domain_test

import (
	"testing"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestLog_MonotonicAcrossReset(t *testing.T) {
	log := domain.NewLog()
	first := log.Add(domain.AuthorBot, "hello")
	second := log.Add(domain.AuthorUser, "Photography")
	assert.Less(t, first.ID, second.ID)
	assert.Equal(t, 2, log.Len())

	log.Reset()
	assert.Equal(t, 0, log.Len())

	third := log.Add(domain.AuthorBot, "hello again")
	assert.Greater(t, third.ID, second.ID, "ids must not be reused after a reset")
	assert.Equal(t, 1, log.Len())
}

func TestLog_MessagesIsACopy(t *testing.T) {
	log := domain.NewLog()
	log.Add(domain.AuthorBot, "hello")

	msgs := log.Messages()
	msgs[0].Text = "mutated"

	assert.Equal(t, "hello", log.Messages()[0].Text)
}

func TestParseDomain(t *testing.T) {
	d, err := domain.ParseDomain(" Vendor ")
	assert.NoError(t, err)
	assert.Equal(t, domain.DomainVendor, d)

	_, err = domain.ParseDomain("catering")
	assert.ErrorIs(t, err, domain.ErrUnknownDomain)
}

func TestEmptyFields(t *testing.T) {
	f, err := domain.EmptyFields(domain.DomainEvent)
	assert.NoError(t, err)
	assert.Equal(t, domain.EventFields{}, f)
	assert.Equal(t, domain.DomainEvent, f.Domain())

	_, err = domain.EmptyFields("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownDomain)
}

func TestIsValidation(t *testing.T) {
	assert.True(t, domain.IsValidation(domain.ErrOptionsLocked))
	assert.True(t, domain.IsValidation(domain.ErrBusy))
	assert.False(t, domain.IsValidation(domain.ErrClosed))
}
