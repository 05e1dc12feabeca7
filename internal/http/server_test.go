package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/ledger/memory"
	"budget/internal/quote"
	"budget/internal/services"
)

type stubRates struct {
	rates core.Rates
	err   error
}

func (s stubRates) Rates(_ context.Context, _ string) (core.Rates, error) {
	return s.rates, s.err
}

type stubQuotes struct {
	err error
}

func (s stubQuotes) Lookup(_ context.Context, symbol string) (quote.Quote, error) {
	if s.err != nil {
		return quote.Quote{}, s.err
	}
	return quote.Quote{Symbol: symbol, Price: decimal.RequireFromString("187.25")}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.New()
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	clock := func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	opts := []services.Option{services.WithIDGenerator(ids), services.WithClock(clock)}
	rates := stubRates{rates: core.Rates{"USD": decimal.NewFromInt(1), "EUR": decimal.RequireFromString("0.5")}}

	s := NewServer(":0", Deps{
		Transactions:       services.NewTransactionService(store, opts...),
		Categories:         services.NewCategoryRegistry(store, opts...),
		Recurring:          services.NewRecurringService(store, opts...),
		Engine:             services.NewRecurrenceEngine(store, opts...),
		Summary:            services.NewSummaryService(store, rates, opts...),
		Rates:              rates,
		Quotes:             stubQuotes{},
		BaseCurrency:       "USD",
		RateLimitPerMinute: 1000,
		Clock:              clock,
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if str, ok := body.(string); ok {
			buf.WriteString(str)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", nil)
	mustStatus(t, rec, http.StatusOK)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestTransactionsLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/transactions", services.TransactionInput{
		Description: "Coffee", Amount: "3.50", Date: "2024-03-10", Category: "Dining Out", Type: "expense",
	})
	mustStatus(t, rec, http.StatusCreated)
	tx := decode[core.Transaction](t, rec)
	if tx.ID != "id-1" || tx.Amount.Cents != -350 || tx.Currency != "USD" {
		t.Fatalf("created = %+v", tx)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/transactions/id-1" {
		t.Errorf("Location = %q", loc)
	}

	do(t, s, http.MethodPost, "/api/transactions", services.TransactionInput{
		Description: "Salary", Amount: "1000", Category: "Salary", Type: "income",
	})

	rec = do(t, s, http.MethodGet, "/api/transactions?type=expense", nil)
	mustStatus(t, rec, http.StatusOK)
	if got := decode[[]core.Transaction](t, rec); len(got) != 1 || got[0].ID != "id-1" {
		t.Errorf("filtered list = %+v", got)
	}

	rec = do(t, s, http.MethodGet, "/api/transactions/id-2", nil)
	mustStatus(t, rec, http.StatusOK)
	if got := decode[core.Transaction](t, rec); !got.Date.Equal(core.NewDate(2024, 3, 15)) {
		t.Errorf("default date = %v", got.Date)
	}

	mustStatus(t, do(t, s, http.MethodDelete, "/api/transactions/id-1", nil), http.StatusNoContent)
	mustStatus(t, do(t, s, http.MethodGet, "/api/transactions/id-1", nil), http.StatusNotFound)
	mustStatus(t, do(t, s, http.MethodDelete, "/api/transactions/id-1", nil), http.StatusNotFound)
}

func TestCreateTransactionErrors(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name  string
		body  any
		want  int
		field string
	}{
		{"malformed json", `{"description":`, http.StatusBadRequest, ""},
		{"unknown field", `{"descr":"x"}`, http.StatusBadRequest, ""},
		{"empty body", "", http.StatusBadRequest, ""},
		{"bad amount", services.TransactionInput{Description: "x", Amount: "abc", Category: "Food", Type: "expense"}, http.StatusUnprocessableEntity, "amount"},
		{"bad type", services.TransactionInput{Description: "x", Amount: "1", Category: "Food", Type: "gift"}, http.StatusUnprocessableEntity, "type"},
		{"bad date", services.TransactionInput{Description: "x", Amount: "1", Category: "Food", Type: "expense", Date: "2024-02-30"}, http.StatusUnprocessableEntity, "date"},
		{"empty description", services.TransactionInput{Amount: "1", Category: "Food", Type: "expense"}, http.StatusUnprocessableEntity, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/transactions", tt.body)
			mustStatus(t, rec, tt.want)
			body := decode[ErrorBody](t, rec)
			if body.Error == "" || body.Field != tt.field {
				t.Errorf("body = %+v, want field %q", body, tt.field)
			}
		})
	}
	if got := decode[[]core.Transaction](t, do(t, s, http.MethodGet, "/api/transactions", nil)); len(got) != 0 {
		t.Errorf("failed creates wrote %d transactions", len(got))
	}
}

func TestCategories(t *testing.T) {
	s := newTestServer(t)
	for _, name := range []string{"Food", "Rent", "Fun"} {
		mustStatus(t, do(t, s, http.MethodPost, "/api/categories", services.CategoryInput{Name: name}), http.StatusCreated)
	}

	t.Run("duplicate name conflicts", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/api/categories", services.CategoryInput{Name: "food"})
		mustStatus(t, rec, http.StatusConflict)
		if body := decode[ErrorBody](t, rec); body.Field != "name" {
			t.Errorf("field = %q", body.Field)
		}
	})

	t.Run("reorder", func(t *testing.T) {
		rec := do(t, s, http.MethodPut, "/api/categories/order", reorderRequest{IDs: []string{"id-3", "id-1", "id-2"}})
		mustStatus(t, rec, http.StatusOK)
		cats := decode[[]core.Category](t, rec)
		want := []string{"Fun", "Food", "Rent"}
		for i, c := range cats {
			if c.Name != want[i] || c.Order != i {
				t.Errorf("cats[%d] = %+v, want %s at %d", i, c, want[i], i)
			}
		}
	})

	t.Run("reorder rejects non-permutation", func(t *testing.T) {
		rec := do(t, s, http.MethodPut, "/api/categories/order", reorderRequest{IDs: []string{"id-1", "id-1", "id-2"}})
		mustStatus(t, rec, http.StatusUnprocessableEntity)
	})

	t.Run("suggest", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/categories/suggest?name=fod&limit=1", nil)
		mustStatus(t, rec, http.StatusOK)
		got := decode[map[string][]string](t, rec)["suggestions"]
		if len(got) != 1 || got[0] != "Food" {
			t.Errorf("suggestions = %v", got)
		}
		mustStatus(t, do(t, s, http.MethodGet, "/api/categories/suggest", nil), http.StatusBadRequest)
	})

	t.Run("rename in use conflicts", func(t *testing.T) {
		do(t, s, http.MethodPost, "/api/transactions", services.TransactionInput{
			Description: "Pizza", Amount: "12", Category: "Food", Type: "expense",
		})
		rec := do(t, s, http.MethodPut, "/api/categories/id-1", services.CategoryInput{Name: "Groceries"})
		mustStatus(t, rec, http.StatusConflict)
	})

	t.Run("delete cascades", func(t *testing.T) {
		mustStatus(t, do(t, s, http.MethodDelete, "/api/categories/id-1", nil), http.StatusNoContent)
		txs := decode[[]core.Transaction](t, do(t, s, http.MethodGet, "/api/transactions?category=Food", nil))
		if len(txs) != 0 {
			t.Errorf("transactions left in deleted category: %+v", txs)
		}
		cats := decode[[]core.Category](t, do(t, s, http.MethodGet, "/api/categories", nil))
		if len(cats) != 2 || cats[0].Order != 0 || cats[1].Order != 1 {
			t.Errorf("orders not compacted: %+v", cats)
		}
		mustStatus(t, do(t, s, http.MethodGet, "/api/categories/id-1", nil), http.StatusNotFound)
	})
}

func TestRecurringRun(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/recurring", services.RecurringInput{
		TransactionInput: services.TransactionInput{Description: "Rent", Amount: "800", Category: "Housing", Type: "expense"},
		StartDate:        "2024-01-31",
		Rule:             "FREQ=MONTHLY;INTERVAL=1",
	})
	mustStatus(t, rec, http.StatusCreated)
	rt := decode[core.RecurringTransaction](t, rec)

	rec = do(t, s, http.MethodPost, "/api/recurring/run?asOf=2024-04-30", nil)
	mustStatus(t, rec, http.StatusOK)
	rep := decode[expansionView](t, rec)
	if rep.Rules != 1 || len(rep.Failures) != 0 {
		t.Fatalf("report = %+v", rep)
	}
	// February and April have no 31st.
	if len(rep.Created) != 2 || rep.Created[0].Date.String() != "2024-01-31" || rep.Created[1].Date.String() != "2024-03-31" {
		t.Errorf("created = %+v", rep.Created)
	}

	rec = do(t, s, http.MethodPost, "/api/recurring/run?asOf=2024-04-30", nil)
	if again := decode[expansionView](t, rec); len(again.Created) != 0 {
		t.Errorf("second pass created %d", len(again.Created))
	}

	got := decode[core.RecurringTransaction](t, do(t, s, http.MethodGet, "/api/recurring/"+rt.ID, nil))
	if got.LastRun == nil || got.LastRun.String() != "2024-03-31" {
		t.Errorf("lastRun = %v", got.LastRun)
	}

	mustStatus(t, do(t, s, http.MethodPost, "/api/recurring/run?asOf=yesterday", nil), http.StatusUnprocessableEntity)

	rec = do(t, s, http.MethodPost, "/api/recurring", services.RecurringInput{
		TransactionInput: services.TransactionInput{Description: "Rent", Amount: "800", Category: "Housing", Type: "expense"},
		Rule:             "FREQ=HOURLY",
	})
	mustStatus(t, rec, http.StatusUnprocessableEntity)

	mustStatus(t, do(t, s, http.MethodDelete, "/api/recurring/"+rt.ID, nil), http.StatusNoContent)
	if rules := decode[[]core.RecurringTransaction](t, do(t, s, http.MethodGet, "/api/recurring", nil)); len(rules) != 0 {
		t.Errorf("rules = %+v", rules)
	}
}

func TestSummaryAndDaily(t *testing.T) {
	s := newTestServer(t)
	for _, in := range []services.TransactionInput{
		{Description: "Pay", Amount: "100", Category: "Salary", Type: "income", Date: "2024-03-01"},
		{Description: "Lunch", Amount: "10", Category: "Food", Type: "expense", Date: "2024-03-02"},
		{Description: "Book", Amount: "10", Category: "Fun", Type: "expense", Date: "2024-03-02", Currency: "EUR"},
	} {
		mustStatus(t, do(t, s, http.MethodPost, "/api/transactions", in), http.StatusCreated)
	}

	rec := do(t, s, http.MethodGet, "/api/summary", nil)
	mustStatus(t, rec, http.StatusOK)
	view := decode[services.SummaryView](t, rec)
	if view.Base != "USD" || view.Income.Cents != 10000 || view.Expense.Cents != 3000 {
		t.Errorf("summary = %+v", view)
	}

	rec = do(t, s, http.MethodGet, "/api/summary/daily?from=2024-03-01&to=2024-03-03", nil)
	mustStatus(t, rec, http.StatusOK)
	days := decode[[]core.DayTotal](t, rec)
	if len(days) != 1 || days[0].Date.String() != "2024-03-02" || days[0].Amount.Cents != 3000 || days[0].Count != 2 {
		t.Errorf("daily = %+v", days)
	}

	mustStatus(t, do(t, s, http.MethodGet, "/api/summary/daily?from=2024-03-05&to=2024-03-01", nil), http.StatusUnprocessableEntity)
	mustStatus(t, do(t, s, http.MethodGet, "/api/summary?type=gift", nil), http.StatusUnprocessableEntity)
}

func TestRatesAndQuote(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/rates?base=usd", nil)
	mustStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"base":"USD"`) {
		t.Errorf("rates body = %s", rec.Body.String())
	}
	mustStatus(t, do(t, s, http.MethodGet, "/api/rates?base=dollars", nil), http.StatusUnprocessableEntity)

	rec = do(t, s, http.MethodGet, "/api/quote?symbol=AAPL", nil)
	mustStatus(t, rec, http.StatusOK)
	if q := decode[quote.Quote](t, rec); q.Symbol != "AAPL" || !q.Price.Equal(decimal.RequireFromString("187.25")) {
		t.Errorf("quote = %+v", q)
	}
	mustStatus(t, do(t, s, http.MethodGet, "/api/quote", nil), http.StatusBadRequest)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing key", quote.ErrMissingAPIKey, http.StatusInternalServerError},
		{"upstream", &core.UpstreamError{Service: "quote", Err: errors.New("timeout")}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.deps.Quotes = stubQuotes{err: tt.err}
			mustStatus(t, do(t, s, http.MethodGet, "/api/quote?symbol=AAPL", nil), tt.want)
		})
	}

	s.deps.Rates = nil
	s.deps.Quotes = nil
	mustStatus(t, do(t, s, http.MethodGet, "/api/rates", nil), http.StatusServiceUnavailable)
	mustStatus(t, do(t, s, http.MethodGet, "/api/quote?symbol=AAPL", nil), http.StatusServiceUnavailable)
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	store := memory.New()
	s := NewServer(":0", Deps{
		Transactions:       services.NewTransactionService(store),
		RateLimitPerMinute: 2,
	})
	defer s.Shutdown(context.Background())

	in := services.TransactionInput{Description: "x", Amount: "1", Category: "Food", Type: "expense"}
	for i := 0; i < 2; i++ {
		mustStatus(t, do(t, s, http.MethodPost, "/api/transactions", in), http.StatusCreated)
	}
	rec := do(t, s, http.MethodPost, "/api/transactions", in)
	mustStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") != "60" {
		t.Error("missing Retry-After")
	}
	mustStatus(t, do(t, s, http.MethodGet, "/api/transactions", nil), http.StatusOK)
}

func TestRateLimitKeysOnForwardedClientBehindTrustedProxy(t *testing.T) {
	store := memory.New()
	s := NewServer(":0", Deps{
		Transactions:       services.NewTransactionService(store),
		RateLimitPerMinute: 1,
		TrustedProxies:     []string{"192.0.2.0/24"},
	})
	defer s.Shutdown(context.Background())

	post := func(client string) *httptest.ResponseRecorder {
		in := services.TransactionInput{Description: "x", Amount: "1", Category: "Food", Type: "expense"}
		body, _ := json.Marshal(in)
		req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, req)
		return rec
	}

	mustStatus(t, post("203.0.113.7"), http.StatusCreated)
	mustStatus(t, post("198.51.100.9"), http.StatusCreated)
	mustStatus(t, post("203.0.113.7"), http.StatusTooManyRequests)
}
