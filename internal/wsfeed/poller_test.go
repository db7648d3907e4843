package wsfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tricore/internal/venue"
)

func TestMetricsPollerUpdatesVenue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fill_rate":0.92,"uptime":0.999}`))
	}))
	defer srv.Close()

	v := venue.NewSimVenue(venue.Binance, venue.DefaultFeeSchedule())
	p := NewMetricsPoller(srv.URL, v, zerolog.Nop())

	if err := p.poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	m := v.Metrics()
	if m.FillRate != 0.92 || m.Uptime != 0.999 {
		t.Fatalf("metrics = %+v, want fill_rate=0.92 uptime=0.999", m)
	}
}

func TestMetricsPollerSurvivesBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := venue.NewSimVenue(venue.Kraken, venue.DefaultFeeSchedule())
	p := NewMetricsPoller(srv.URL, v, zerolog.Nop())
	p.interval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Run(ctx); err == nil {
		t.Fatalf("expected context deadline error, got nil")
	}
}
