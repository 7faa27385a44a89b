package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	events []*domain.DispatchEvent
	err    error
}

func (f *fakeArchive) Record(_ context.Context, e *domain.DispatchEvent) error {
	f.events = append(f.events, e)
	return f.err
}

func (f *fakeArchive) Recent(context.Context, int) ([]domain.DispatchRecord, error) {
	return nil, nil
}

func dispatchReturn() *domain.DispatchEvent {
	return &domain.DispatchEvent{
		EventBase: domain.EventBase{Type: domain.EventDispatchReturn, SessionID: "s1", Generation: 1},
		Domain:    domain.DomainVendor,
		Kind:      domain.DispatchQuery,
		Fields:    domain.VendorFields{ServiceType: "Photography"},
		Duration:  250 * time.Millisecond,
	}
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	hooks := m.Hooks()
	ctx := context.Background()
	hooks.OnMessage(ctx, &domain.MessageEvent{Message: domain.Message{Author: domain.AuthorBot}})
	hooks.OnMessage(ctx, &domain.MessageEvent{Message: domain.Message{Author: domain.AuthorBot}})
	hooks.OnTransition(ctx, &domain.TransitionEvent{Domain: domain.DomainEvent, To: domain.StateAskingGuests})
	hooks.OnDispatchReturn(ctx, dispatchReturn())

	families, err := reg.Gather()
	require.NoError(t, err)

	got := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				got[mf.GetName()] += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				got[mf.GetName()] += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, 2.0, got["concierge_messages_total"])
	assert.Equal(t, 1.0, got["concierge_transitions_total"])
	assert.Equal(t, 1.0, got["concierge_dispatches_total"])
	assert.Equal(t, 1.0, got["concierge_dispatch_duration_seconds"])
}

func TestMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestArchiveHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	archive := &fakeArchive{}
	hooks := observability.ArchiveHooks(archive, logger)
	assert.Nil(t, hooks.OnMessage)

	e := dispatchReturn()
	hooks.OnDispatchReturn(context.Background(), e)
	require.Len(t, archive.events, 1)
	assert.Same(t, e, archive.events[0])
	assert.Empty(t, buf.String())

	archive.err = errors.New("disk full")
	hooks.OnDispatchReturn(context.Background(), e)
	assert.Contains(t, buf.String(), "failed to archive dispatch")
	assert.Contains(t, buf.String(), "disk full")
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LogHooks(logger)

	hooks.OnTransition(context.Background(), &domain.TransitionEvent{
		EventBase: domain.EventBase{SessionID: "s1"},
		Domain:    domain.DomainEvent,
		From:      domain.StateAskingEventType,
		To:        domain.StateAskingGuests,
	})
	hooks.OnDispatchReturn(context.Background(), dispatchReturn())

	out := buf.String()
	assert.Contains(t, out, "msg=transition")
	assert.Contains(t, out, "to=ASKING_GUEST_COUNT")
	assert.Contains(t, out, "msg=dispatch_return")
	assert.Contains(t, out, "is_error=false")
}
