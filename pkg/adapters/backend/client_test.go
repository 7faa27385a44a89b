package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/concierge/pkg/adapters/backend"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, mux *http.ServeMux) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c, err := backend.New(srv.URL + "/api")
	require.NoError(t, err)
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := backend.New("not a url")
	assert.Error(t, err)
	_, err = backend.New("/relative")
	assert.Error(t, err)
}

func TestClient_VendorQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/vendor-match", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Photography", q.Get("serviceName"))
		assert.Equal(t, "175000", q.Get("budget"))
		assert.Equal(t, "Addis Ababa", q.Get("location"))
		assert.False(t, q.Has("message"))

		_, _ = w.Write([]byte(`{"data":{"services":[
			{"id":7,"name":"Studio Lumen","subCategory":{"name":"Photography"},
			 "vendor":{"businessName":"Lumen PLC"},"basicPrice":"150000.00",
			 "reviewService":[{"rating":4},{"rating":5}]},
			{"id":"abc","name":"Quick Snap","subCategory":{"name":"Photography"},
			 "vendor":{"businessName":"Snap"},"basicPrice":90000,"reviewService":[]}
		]}}`))
	})
	c := newClient(t, mux)

	resp, err := c.Query(context.Background(), domain.VendorFields{ServiceType: "Photography", Budget: 175000, Location: "Addis Ababa"})
	require.NoError(t, err)

	matches, ok := resp.(domain.VendorMatches)
	require.True(t, ok)
	require.Len(t, matches.Services, 2)
	assert.Equal(t, domain.VendorService{
		ID:           "7",
		Name:         "Studio Lumen",
		Category:     "Photography",
		BusinessName: "Lumen PLC",
		BasicPrice:   150000,
		Ratings:      []float64{4, 5},
	}, matches.Services[0])
	assert.Equal(t, "abc", matches.Services[1].ID)
	assert.Empty(t, matches.Services[1].Ratings)
}

func TestClient_EventQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/event-advice", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"eventType": "Wedding", "guestCount": 75.0, "location": "Bahirdar"}, body)

		_, _ = w.Write([]byte(`{"budgetEstimate":{"min":100000,"max":250000,"currency":"ETB"},"steps":["Book the venue"]}`))
	})
	c := newClient(t, mux)

	resp, err := c.Query(context.Background(), domain.EventFields{EventType: "Wedding", GuestCount: 75, Location: "Bahirdar"})
	require.NoError(t, err)

	advice, ok := resp.(domain.EventAdvice)
	require.True(t, ok)
	assert.Equal(t, &domain.BudgetEstimate{Min: 100000, Max: 250000, Currency: "ETB"}, advice.BudgetEstimate)
	assert.Equal(t, []string{"Book the venue"}, advice.Steps)
	assert.Nil(t, advice.Considerations)
}

func TestClient_FollowUp(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/vendor-match", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cheaper ones?", r.URL.Query().Get("message"))
		assert.Equal(t, "Catering", r.URL.Query().Get("serviceName"))
		_, _ = w.Write([]byte(`{"reply":"Here are **cheaper** caterers."}`))
	})
	mux.HandleFunc("POST /api/event-advice", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "what about music?", body["message"])
		assert.Equal(t, "Birthday", body["eventType"])
		_, _ = w.Write([]byte(`{"reply":"Hire a DJ."}`))
	})
	c := newClient(t, mux)
	ctx := context.Background()

	reply, err := c.FollowUp(ctx, domain.VendorFields{ServiceType: "Catering"}, "cheaper ones?")
	require.NoError(t, err)
	assert.Equal(t, "Here are **cheaper** caterers.", reply)

	reply, err = c.FollowUp(ctx, domain.EventFields{EventType: "Birthday"}, "what about music?")
	require.NoError(t, err)
	assert.Equal(t, "Hire a DJ.", reply)
}

func TestClient_Categories(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/vendor-categories", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`["Photography","Catering"]`))
	})
	c := newClient(t, mux)

	list, err := c.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Photography", "Catering"}, list)
}

func TestClient_Failures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/vendor-match", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	mux.HandleFunc("POST /api/event-advice", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})
	mux.HandleFunc("GET /api/vendor-categories", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	})
	c := newClient(t, mux)
	ctx := context.Background()

	t.Run("Status", func(t *testing.T) {
		_, err := c.Query(ctx, domain.VendorFields{})
		var statusErr *backend.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
		assert.Equal(t, "boom", statusErr.Body)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := c.Query(ctx, domain.EventFields{})
		assert.ErrorIs(t, err, backend.ErrMalformed)
	})

	t.Run("Missing Reply", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/event-advice", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		})
		_, err := newClient(t, mux).FollowUp(ctx, domain.EventFields{}, "hi")
		assert.ErrorIs(t, err, backend.ErrMalformed)
	})

	t.Run("Missing Data", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/vendor-match", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"message":"ok"}`))
		})
		_, err := newClient(t, mux).Query(ctx, domain.VendorFields{})
		assert.ErrorIs(t, err, backend.ErrMalformed)
	})

	t.Run("Canceled", func(t *testing.T) {
		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := c.Categories(short)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}
