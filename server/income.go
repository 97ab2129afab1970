package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/etnz/allocator"
	"github.com/etnz/allocator/service"
)

// parseDay parses an optional YYYY-MM-DD date.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	on, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", allocator.ErrInvalidInput, s)
	}
	return on, nil
}

func (s *Server) handleDividends(w http.ResponseWriter, r *http.Request) {
	in, err := s.svc.Dividends(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, in)
}

type dividendRequest struct {
	Ticker     string          `json:"ticker"`
	Amount     allocator.Money `json:"amount"`
	Date       string          `json:"date,omitempty"`
	Reinvested bool            `json:"reinvested"`
}

func (s *Server) handleRecordDividend(w http.ResponseWriter, r *http.Request) {
	var in dividendRequest
	if err := decode(r, &in); err != nil {
		s.fail(w, err)
		return
	}
	on, err := parseDay(in.Date)
	if err != nil {
		s.fail(w, err)
		return
	}
	d, err := s.svc.RecordDividend(r.Context(), chi.URLParam(r, "id"), service.DividendInput{
		Ticker:     in.Ticker,
		Amount:     in.Amount,
		Date:       on,
		Reinvested: in.Reinvested,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, d)
}

// handleForecast projects the portfolio under ?monthly=&rate=&years=, each
// defaulting to the service default plan.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	in := s.svc.DefaultForecast()
	q := r.URL.Query()
	if v := q.Get("monthly"); v != "" {
		m, err := allocator.ParseMoney(v, s.svc.Currency())
		if err != nil {
			s.fail(w, fmt.Errorf("%w: monthly: %w", allocator.ErrInvalidInput, err))
			return
		}
		in.Monthly = m
	}
	if v := q.Get("rate"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.fail(w, fmt.Errorf("%w: rate: %w", allocator.ErrInvalidInput, err))
			return
		}
		in.Rate = allocator.Percent(rate)
	}
	if v := q.Get("years"); v != "" {
		years, err := strconv.Atoi(v)
		if err != nil {
			s.fail(w, fmt.Errorf("%w: years: %w", allocator.ErrInvalidInput, err))
			return
		}
		in.Years = years
	}
	f, err := s.svc.Forecast(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, f)
}

type goalRequest struct {
	Target allocator.Money `json:"target"`
	Date   string          `json:"date,omitempty"`
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var in goalRequest
	if err := decode(r, &in); err != nil {
		s.fail(w, err)
		return
	}
	on, err := parseDay(in.Date)
	if err != nil {
		s.fail(w, err)
		return
	}
	var date *time.Time
	if !on.IsZero() {
		date = &on
	}
	g, err := s.svc.SetGoal(r.Context(), chi.URLParam(r, "id"), in.Target, date)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleClearGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearGoal(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type consolidatedResponse struct {
	*allocator.Consolidation
	Gain     allocator.Money          `json:"gain"`
	Dominant *allocator.CategoryTotal `json:"dominant,omitempty"`
}

func (s *Server) handleConsolidated(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Consolidated(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := consolidatedResponse{Consolidation: c, Gain: c.Gain()}
	if d, ok := c.Dominant(); ok {
		resp.Dominant = &d
	}
	if resp.Portfolios == nil {
		resp.Portfolios = []allocator.PortfolioShare{}
	}
	if resp.Categories == nil {
		resp.Categories = []allocator.CategoryTotal{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}
