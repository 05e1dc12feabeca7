package http

import (
	"net/http"
	"strings"

	"budget/internal/core"
)

func (s *Server) baseParam(r *http.Request) string {
	if b := strings.TrimSpace(r.URL.Query().Get("base")); b != "" {
		return b
	}
	return s.deps.BaseCurrency
}

// monthToDate is the default window of the daily view: the first of the
// current month through today.
func (s *Server) monthToDate() (core.Date, core.Date) {
	today := s.today()
	return core.NewDate(today.Year(), today.Month(), 1), today
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	view, err := s.deps.Summary.Summary(r.Context(), f, s.baseParam(r))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := s.monthToDate()
	if d, ok, err := ParseDateParam(q, "from"); err != nil {
		FromError(r, err).Write(w)
		return
	} else if ok {
		from = d
	}
	if d, ok, err := ParseDateParam(q, "to"); err != nil {
		FromError(r, err).Write(w)
		return
	} else if ok {
		to = d
	}
	if to.Before(from) {
		FromError(r, core.Invalid("to", errToBeforeFrom)).Write(w)
		return
	}
	days, err := s.deps.Summary.Daily(r.Context(), from, to, s.baseParam(r))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if days == nil {
		days = []core.DayTotal{}
	}
	NewJSONResponse().Body(days).Write(w)
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	if s.deps.Rates == nil {
		ErrorResponse(http.StatusServiceUnavailable, "exchange rates are not configured").Write(w)
		return
	}
	base, err := core.NormalizeCurrency(s.baseParam(r))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	rates, err := s.deps.Rates.Rates(r.Context(), base)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"base": base, "rates": rates}).Write(w)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if s.deps.Quotes == nil {
		ErrorResponse(http.StatusServiceUnavailable, "quotes are not configured").Write(w)
		return
	}
	symbol := sanitizeInput(r.URL.Query().Get("symbol"))
	if symbol == "" {
		BadRequestError("symbol is required").Write(w)
		return
	}
	q, err := s.deps.Quotes.Lookup(r.Context(), symbol)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(q).Write(w)
}
