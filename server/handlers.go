package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/service"
	"github.com/etnz/allocator/store"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"error": message})
}

// fail maps a service error to its HTTP status.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, allocator.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, allocator.ErrPortfolioClosed):
		status = http.StatusConflict
	case errors.Is(err, allocator.ErrBudgetExceeded):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	s.writeError(w, status, err.Error())
}

// decode reads the JSON body into v. Unknown fields are rejected.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", allocator.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.svc.Profiles(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profiles)
}

// handleQuotes returns the market prices of ?tickers=A,B.
func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	var tickers []string
	for _, t := range strings.Split(r.URL.Query().Get("tickers"), ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			tickers = append(tickers, t)
		}
	}
	if len(tickers) == 0 {
		s.writeError(w, http.StatusBadRequest, "tickers is required")
		return
	}
	s.writeJSON(w, http.StatusOK, s.svc.Quotes(r.Context(), tickers))
}

func (s *Server) handleRefreshQuotes(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.RefreshQuotes(r.Context())
	if err != nil && n == 0 {
		s.fail(w, err)
		return
	}
	resp := map[string]any{"updated": n}
	if err != nil {
		resp["error"] = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePortfolios(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Portfolios(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		s.fail(w, err)
		return
	}
	if list == nil {
		list = []allocator.Portfolio{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var in service.PlanInput
	if err := decode(r, &in); err != nil {
		s.fail(w, err)
		return
	}
	plan, err := s.svc.Plan(r.Context(), in)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

type creationResponse struct {
	Portfolio    allocator.Portfolio     `json:"portfolio"`
	Positions    []allocator.Position    `json:"positions"`
	Transactions []allocator.Transaction `json:"transactions"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if err := decode(r, &in); err != nil {
		s.fail(w, err)
		return
	}
	c, err := s.svc.Create(r.Context(), in)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, creationResponse{c.Portfolio, c.Positions, c.Transactions})
}

// valuationResponse is a portfolio valued at the current prices.
type valuationResponse struct {
	Portfolio  allocator.Portfolio        `json:"portfolio"`
	Value      allocator.Money            `json:"value"`
	Cost       allocator.Money            `json:"cost"`
	Gain       allocator.Money            `json:"gain"`
	Return     float64                    `json:"return"`
	Categories map[string]categoryWeight  `json:"categories"`
	Positions  []allocator.ValuedPosition `json:"positions"`
}

type categoryWeight struct {
	Weight float64 `json:"weight"`
	Target float64 `json:"target"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := s.svc.Value(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := valuationResponse{
		Portfolio:  v.Portfolio,
		Value:      v.Value,
		Cost:       v.Cost,
		Gain:       v.Gain(),
		Return:     float64(v.Return()),
		Categories: map[string]categoryWeight{},
		Positions:  v.Lines,
	}
	if resp.Positions == nil {
		resp.Positions = []allocator.ValuedPosition{}
	}
	var profile allocator.Profile
	if profiles, err := s.svc.Profiles(ctx); err == nil {
		for _, p := range profiles {
			if p.ID == v.Portfolio.ProfileID {
				profile = p
			}
		}
	}
	for _, c := range allocator.Categories {
		resp.Categories[c.String()] = categoryWeight{Weight: float64(v.Weight(c)), Target: float64(profile.Pct(c))}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Notes string `json:"notes"`
	}
	if err := decode(r, &in); err != nil {
		s.fail(w, err)
		return
	}
	if err := s.svc.SetNotes(r.Context(), chi.URLParam(r, "id"), in.Notes); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if r.ContentLength != 0 {
		if err := decode(r, &in); err != nil {
			s.fail(w, err)
			return
		}
	}
	p, err := s.svc.Duplicate(r.Context(), chi.URLParam(r, "id"), in.Name)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

type contributionRequest struct {
	// Amount is the cash brought in. When positive, the purchases must fit.
	Amount allocator.Money `json:"amount,omitzero"`
	Buys   []allocator.Buy `json:"buys"`
}

type contributionResponse struct {
	Total        allocator.Money         `json:"total"`
	Positions    []allocator.Position    `json:"positions"`
	Transactions []allocator.Transaction `json:"transactions"`
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var in contributionRequest
	if err := decode(r, &in); err != nil {
		s.fail(w, err)
		return
	}
	c, err := s.svc.Contribute(r.Context(), chi.URLParam(r, "id"), in.Amount, in.Buys)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, contributionResponse{c.Total(), c.Positions, c.Transactions})
}

type rebalanceResponse struct {
	Plan         *allocator.Plan         `json:"plan"`
	External     allocator.Money         `json:"external"`
	Committed    bool                    `json:"committed"`
	Portfolio    allocator.Portfolio     `json:"portfolio"`
	Closed       allocator.Portfolio     `json:"closed"`
	Positions    []allocator.Position    `json:"positions"`
	Transactions []allocator.Transaction `json:"transactions"`
	Sales        []allocator.Transaction `json:"sales"`
}

// handleRebalance previews the migration of a portfolio, or commits it.
func (s *Server) handleRebalance(commit bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.RebalanceInput
		if r.ContentLength != 0 {
			if err := decode(r, &in); err != nil {
				s.fail(w, err)
				return
			}
		}
		in.PortfolioID = chi.URLParam(r, "id")

		do := s.svc.PreviewRebalance
		if commit {
			do = s.svc.Rebalance
		}
		rb, err := do(r.Context(), in)
		if err != nil {
			s.fail(w, err)
			return
		}
		m := rb.Migration
		resp := rebalanceResponse{
			Plan:         rb.Plan,
			External:     rb.External,
			Committed:    commit,
			Portfolio:    m.Portfolio,
			Closed:       m.Closed,
			Positions:    m.Positions,
			Transactions: m.Transactions,
			Sales:        m.Sales,
		}
		if resp.Sales == nil {
			resp.Sales = []allocator.Transaction{}
		}
		status := http.StatusOK
		if commit {
			status = http.StatusCreated
		}
		s.writeJSON(w, status, resp)
	}
}

func (s *Server) handleManualQuote(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Price allocator.Money `json:"price"`
	}
	if err := decode(r, &in); err != nil {
		s.fail(w, err)
		return
	}
	if err := s.svc.SetManualQuote(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "ticker"), in.Price); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type historyResponse struct {
	Lineage      []allocator.Portfolio   `json:"lineage"`
	Transactions []allocator.Transaction `json:"transactions"`
}

// handleTransactions returns the history of the portfolio lineage.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := historyResponse{Lineage: h.Lineage, Transactions: h.Transactions}
	if resp.Transactions == nil {
		resp.Transactions = []allocator.Transaction{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}
