package http

import (
	"net/http"

	"budget/internal/core"
	"budget/internal/services"
)

type ruleFailureView struct {
	RuleID string `json:"ruleId"`
	Error  string `json:"error"`
}

type expansionView struct {
	AsOf     core.Date          `json:"asOf"`
	Rules    int                `json:"rules"`
	Created  []core.Transaction `json:"created"`
	Failures []ruleFailureView  `json:"failures"`
}

func newExpansionView(rep services.ExpansionReport) expansionView {
	v := expansionView{
		AsOf:     rep.AsOf,
		Rules:    rep.Rules,
		Created:  rep.Created,
		Failures: make([]ruleFailureView, 0, len(rep.Failures)),
	}
	if v.Created == nil {
		v.Created = []core.Transaction{}
	}
	for _, f := range rep.Failures {
		v.Failures = append(v.Failures, ruleFailureView{RuleID: f.RuleID, Error: f.Err.Error()})
	}
	return v
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	rules, err := s.deps.Recurring.List(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if rules == nil {
		rules = []core.RecurringTransaction{}
	}
	NewJSONResponse().Body(rules).Write(w)
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	rt, err := s.deps.Recurring.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(rt).Write(w)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var in services.RecurringInput
	if err := DecodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rt, err := s.deps.Recurring.Create(r.Context(), in)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/recurring/"+rt.ID).
		Body(rt).
		Write(w)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	var in services.RecurringInput
	if err := DecodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rt, err := s.deps.Recurring.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(rt).Write(w)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Recurring.Delete(r.Context(), r.PathValue("id")); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleRunRecurring runs one expansion pass up to asOf, today by default.
// Per-rule failures are reported in the body; the pass itself still
// answers 200 unless listing the rules failed.
func (s *Server) handleRunRecurring(w http.ResponseWriter, r *http.Request) {
	asOf, ok, err := ParseDateParam(r.URL.Query(), "asOf")
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if !ok {
		asOf = s.today()
	}
	rep, err := s.deps.Engine.Run(r.Context(), asOf)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(newExpansionView(rep)).Write(w)
}
