package fx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

func TestRates(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/latest" || r.URL.Query().Get("from") != "TWD" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte(`{"amount":1.0,"base":"TWD","date":"2024-05-01","rates":{"USD":0.031,"EUR":0.0285}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Minute)
	rates, err := c.Rates(context.Background(), "twd")
	if err != nil {
		t.Fatalf("Rates: %v", err)
	}
	if !rates["USD"].Equal(decimal.RequireFromString("0.031")) {
		t.Errorf("USD = %v", rates["USD"])
	}
	if !rates["TWD"].Equal(decimal.NewFromInt(1)) {
		t.Errorf("base rate = %v", rates["TWD"])
	}

	if _, err := c.Rates(context.Background(), "TWD"); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1 (cached)", hits.Load())
	}
}

func TestRates_CoalescesConcurrentLookups(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(`{"base":"USD","rates":{"EUR":0.9}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Minute)
	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Rates(context.Background(), "USD")
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1", hits.Load())
	}
}

func TestRates_CancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	var hits atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(started)
		}
		<-release
		w.Write([]byte(`{"base":"USD","rates":{"EUR":0.9}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Minute)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Rates(ctxA, "USD")
		errA <- err
	}()
	<-started

	type result struct {
		rates core.Rates
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		r, err := c.Rates(context.Background(), "USD")
		resB <- result{r, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller err = %v, want context.Canceled", err)
	}
	close(release)

	got := <-resB
	if got.err != nil {
		t.Fatalf("waiting caller failed: %v", got.err)
	}
	if got.rates == nil {
		t.Fatal("waiting caller got no rates")
	}
	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1", hits.Load())
	}
}

func TestRates_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		base    string
		want    error
	}{
		{
			name:    "bad base",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			base:    "DOLLARS",
			want:    core.ErrValidation,
		},
		{
			name:    "upstream status",
			handler: func(w http.ResponseWriter, r *http.Request) { http.Error(w, "nope", http.StatusNotFound) },
			base:    "USD",
			want:    core.ErrUpstream,
		},
		{
			name:    "bad body",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`<html>`)) },
			base:    "USD",
			want:    core.ErrUpstream,
		},
		{
			name:    "empty table",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"base":"USD","rates":{}}`)) },
			base:    "USD",
			want:    core.ErrUpstream,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := NewClient(srv.URL, 0).Rates(context.Background(), tt.base)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRates_FailuresAreNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"base":"USD","rates":{"EUR":0.9}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Minute)
	if _, err := c.Rates(context.Background(), "USD"); err == nil {
		t.Fatal("expected failure")
	}
	fail.Store(false)
	if _, err := c.Rates(context.Background(), "USD"); err != nil {
		t.Fatalf("second lookup: %v", err)
	}
}
