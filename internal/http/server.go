package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/quote"
	"budget/internal/services"
)

// QuoteLookup resolves a market symbol to its latest price.
type QuoteLookup interface {
	Lookup(ctx context.Context, symbol string) (quote.Quote, error)
}

// Deps are the services the API exposes. Rates and Quotes may be nil, in
// which case their routes answer 503.
type Deps struct {
	Transactions *services.TransactionService
	Categories   *services.CategoryRegistry
	Recurring    *services.RecurringService
	Engine       services.Expander
	Summary      *services.SummaryService
	Rates        services.RateProvider
	Quotes       QuoteLookup

	BaseCurrency       string
	RateLimitPerMinute int
	TrustedProxies     []string
	Clock              func() time.Time
	Logger             *log.Logger
}

type Server struct {
	http.Server
	deps    Deps
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}

	s := &Server{
		deps:    deps,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		tracer:  trace.NewMiddleware(),
	}

	proxies := security.NewProxyResolver()
	for _, cidr := range deps.TrustedProxies {
		if err := proxies.AddTrustedProxy(cidr); err != nil {
			deps.Logger.Warn("Ignoring trusted proxy", "cidr", cidr, log.FieldError, err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories/suggest", s.handleSuggestCategories)
	mux.HandleFunc("PUT /api/categories/order", s.handleReorderCategories)
	mux.HandleFunc("GET /api/categories/{id}", s.handleGetCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/recurring", s.handleListRecurring)
	mux.HandleFunc("POST /api/recurring", s.handleCreateRecurring)
	mux.HandleFunc("POST /api/recurring/run", s.handleRunRecurring)
	mux.HandleFunc("GET /api/recurring/{id}", s.handleGetRecurring)
	mux.HandleFunc("PUT /api/recurring/{id}", s.handleUpdateRecurring)
	mux.HandleFunc("DELETE /api/recurring/{id}", s.handleDeleteRecurring)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/summary/daily", s.handleDaily)
	mux.HandleFunc("GET /api/rates", s.handleRates)
	mux.HandleFunc("GET /api/quote", s.handleQuote)

	var h http.Handler = mux
	h = s.limiter.Middleware(proxies.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	})(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.Middleware(deps.Logger, trace.FromRequest)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) today() core.Date {
	return core.DateOf(s.deps.Clock())
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}
