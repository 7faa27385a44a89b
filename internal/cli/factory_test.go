package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/concierge/internal/config"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marketplace(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/vendor-categories", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`["Photography","Catering"]`))
	})
	mux.HandleFunc("POST /api/event-advice", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"steps":["Book the venue"],"considerations":["Rainy season"]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Backend.BaseURL = baseURL + "/api"
	cfg.Conversation.AckDelay = 0
	cfg.Archive.Path = filepath.Join(t.TempDir(), "archive.db")
	return cfg
}

func waitIdle(t *testing.T, snap func() domain.Snapshot) domain.Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		s := snap()
		return !s.Loading && !s.OptionsPending
	}, 2*time.Second, 5*time.Millisecond)
	return snap()
}

func TestStack_EventConversationIsArchivedAndCounted(t *testing.T) {
	srv := marketplace(t)
	cfg := testConfig(t, srv.URL)
	registry := prometheus.NewRegistry()

	stack, err := NewStack(context.Background(), cfg, logging.NewNop(), WithRegisterer(registry))
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })
	require.NotNil(t, stack.Archive)
	require.NotNil(t, stack.Metrics)

	conv, err := stack.NewConversation("session-1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conv.Close() })
	assert.Equal(t, "session-1", conv.ID())

	ctx := context.Background()
	require.NoError(t, conv.Start(ctx, domain.DomainEvent))
	for _, answer := range []string{"Wedding", "1 - 50", "Adama"} {
		waitIdle(t, conv.Snapshot)
		require.NoError(t, conv.SelectOption(ctx, answer))
	}

	snap := waitIdle(t, conv.Snapshot)
	assert.Equal(t, domain.StateProcessing, snap.FlowState)
	last := snap.Messages[len(snap.Messages)-1]
	assert.Contains(t, last.Text, "Book the venue")

	// The archive and metrics hooks run after the reply is visible.
	var records []domain.DispatchRecord
	require.Eventually(t, func() bool {
		records, err = stack.Archive.Recent(ctx, 5)
		return err == nil && len(records) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "session-1", records[0].SessionID)
	assert.Equal(t, domain.DispatchQuery, records[0].Kind)
	assert.False(t, records[0].IsError)

	// Follow-up text is archived with contact details masked.
	require.NoError(t, conv.SubmitText(ctx, "mail me at abebe@example.com"))
	require.Eventually(t, func() bool {
		records, err = stack.Archive.Recent(ctx, 5)
		return err == nil && len(records) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.DispatchFollowUp, records[0].Kind)
	assert.Equal(t, "mail me at ***", records[0].Text)

	require.Eventually(t, func() bool {
		families, err := registry.Gather()
		if err != nil {
			return false
		}
		for _, f := range families {
			if f.GetName() == "concierge_dispatches_total" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	var out bytes.Buffer
	require.NoError(t, PrintHistory(&out, records[1:], false))
	assert.Contains(t, out.String(), shortID("session-1"))
	assert.Contains(t, out.String(), "query")
}

func TestStack_RedisCategoryCache(t *testing.T) {
	srv := marketplace(t)
	mr := miniredis.RunT(t)

	cfg := testConfig(t, srv.URL)
	cfg.Archive.Path = ""
	cfg.Redis.Addr = mr.Addr()

	stack, err := NewStack(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })
	assert.Nil(t, stack.Archive)
	assert.Nil(t, stack.Metrics)

	conv, err := stack.NewConversation("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conv.Close() })

	require.NoError(t, conv.Start(context.Background(), domain.DomainVendor))
	snap := waitIdle(t, conv.Snapshot)
	assert.Equal(t, domain.StateAskingService, snap.FlowState)
	assert.ElementsMatch(t, []string{"Photography", "Catering"}, snap.Options)

	raw, err := mr.Get("concierge:categories")
	require.NoError(t, err)
	var cached []string
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.ElementsMatch(t, []string{"Photography", "Catering"}, cached)
}

func TestNewStack_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.BaseURL = "not a url"
	_, err := NewStack(context.Background(), cfg, logging.NewNop())
	assert.ErrorContains(t, err, "backend")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg = config.Default()
	cfg.Redis.Addr = addr
	_, err = NewStack(context.Background(), cfg, logging.NewNop())
	assert.ErrorContains(t, err, "redis")
}

func TestPrintHistory(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, PrintHistory(&out, nil, false))
	assert.Equal(t, "No dispatches recorded.\n", out.String())

	out.Reset()
	records := []domain.DispatchRecord{{
		ID:        1,
		SessionID: "abc",
		Domain:    domain.DomainVendor,
		Kind:      domain.DispatchFollowUp,
		IsError:   true,
		Error:     "unexpected status 502",
	}}
	require.NoError(t, PrintHistory(&out, records, true))
	var decoded []domain.DispatchRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, records[0].Error, decoded[0].Error)

	out.Reset()
	require.NoError(t, PrintHistory(&out, records, false))
	assert.Contains(t, out.String(), "error: unexpected status 502")
}

func TestRunGraph(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunGraph(GraphOptions{Domain: "vendor"}, &out))
	assert.Contains(t, out.String(), "subgraph vendor")
	assert.NotContains(t, out.String(), "subgraph event")
	assert.Contains(t, out.String(), `-. "remote options" .-> vendor_asking_service_type`)

	assert.ErrorIs(t, RunGraph(GraphOptions{Domain: "weather"}, &out), domain.ErrUnknownDomain)
}
