package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finscope/finscope/pkg/domain"
	"github.com/finscope/finscope/pkg/planner"
)

// analysisHeadlines caps how many item titles are handed to the analyst
const analysisHeadlines = 10

// statusHandler returns basic service state
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	items := s.feed.GetItems(r.Context(), domain.ItemFilter{})

	status := map[string]any{
		"status":  "ok",
		"version": s.version,
		"items":   len(items),
	}
	if last := s.feed.LastRefreshed(); !last.IsZero() {
		status["last_refreshed"] = last.UTC().Format(time.RFC3339)
	}

	s.renderJSON(w, http.StatusOK, status)
}

// itemsHandler returns aggregated items, filtered and sorted per query params
func (s *Server) itemsHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		s.renderError(w, http.StatusBadRequest, err.Error())
		return
	}

	items := s.feed.GetItems(r.Context(), filter)
	s.renderJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// sourcesHandler returns the configured feed sources
func (s *Server) sourcesHandler(w http.ResponseWriter, r *http.Request) {
	s.renderJSON(w, http.StatusOK, map[string]any{"sources": s.feed.Sources()})
}

// analysisHandler returns a market analysis for the requested topic,
// built from the current top headlines
func (s *Server) analysisHandler(w http.ResponseWriter, r *http.Request) {
	if s.analyst == nil {
		s.renderError(w, http.StatusServiceUnavailable, "analysis disabled")
		return
	}

	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	if topic == "" {
		s.renderError(w, http.StatusBadRequest, "topic is required")
		return
	}

	items := s.feed.GetItems(r.Context(), domain.ItemFilter{Query: topic, Limit: analysisHeadlines})
	if len(items) == 0 { // fall back to the overall top items
		items = s.feed.GetItems(r.Context(), domain.ItemFilter{Limit: analysisHeadlines})
	}
	headlines := make([]string, 0, len(items))
	for _, item := range items {
		headlines = append(headlines, item.Title)
	}

	analysis, err := s.analyst.MarketAnalysis(r.Context(), topic, headlines)
	if err != nil {
		log.Printf("[WARN] analysis failed for topic %q: %v", topic, err)
		s.renderError(w, http.StatusServiceUnavailable, "analysis unavailable")
		return
	}

	s.renderJSON(w, http.StatusOK, analysis)
}

// projectionRequest is the shared body for both projection endpoints
type projectionRequest struct {
	Initial             decimal.Decimal `json:"initial"`
	Target              decimal.Decimal `json:"target"`
	MonthlyContribution decimal.Decimal `json:"monthly_contribution"`
	PeriodicRate        decimal.Decimal `json:"periodic_rate"`
	Months              int             `json:"months"`
}

func (p projectionRequest) input() planner.ProjectionInput {
	return planner.ProjectionInput{
		Initial:             p.Initial,
		Target:              p.Target,
		MonthlyContribution: p.MonthlyContribution,
		PeriodicRate:        p.PeriodicRate,
	}
}

// projectionTargetHandler calculates how many months it takes to reach a goal
func (s *Server) projectionTargetHandler(w http.ResponseWriter, r *http.Request) {
	var req projectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.renderError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := planner.MonthsToTarget(req.input())
	switch {
	case errors.Is(err, planner.ErrInvalidInput):
		s.renderError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, planner.ErrUnreachableGoal):
		s.renderJSON(w, http.StatusOK, map[string]any{"unreachable": true})
		return
	case err != nil:
		s.renderError(w, http.StatusInternalServerError, "projection failed")
		return
	}

	s.renderJSON(w, http.StatusOK, map[string]any{
		"unreachable":       false,
		"months":            result.Months,
		"final_balance":     result.FinalBalance,
		"total_contributed": result.TotalContributed,
		"market_return":     result.MarketReturn,
	})
}

// projectionHorizonHandler calculates the projected balance after n months
func (s *Server) projectionHorizonHandler(w http.ResponseWriter, r *http.Request) {
	var req projectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.renderError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := planner.ProjectAtHorizon(planner.ProjectionInput{
		Initial:             req.Initial,
		MonthlyContribution: req.MonthlyContribution,
		PeriodicRate:        req.PeriodicRate,
	}, req.Months)
	if err != nil {
		if errors.Is(err, planner.ErrInvalidInput) {
			s.renderError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.renderError(w, http.StatusInternalServerError, "projection failed")
		return
	}

	s.renderJSON(w, http.StatusOK, map[string]any{
		"months":            result.Months,
		"balance":           result.FinalBalance,
		"total_contributed": result.TotalContributed,
		"market_return":     result.MarketReturn,
	})
}

// filterFromQuery builds an ItemFilter from request query parameters
func filterFromQuery(r *http.Request) (domain.ItemFilter, error) {
	q := r.URL.Query()

	filter := domain.ItemFilter{
		Query:     strings.TrimSpace(q.Get("q")),
		Category:  strings.TrimSpace(q.Get("category")),
		SourceID:  strings.TrimSpace(q.Get("source")),
		Sentiment: domain.Sentiment(strings.TrimSpace(q.Get("sentiment"))),
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return domain.ItemFilter{}, errors.New("invalid limit")
		}
		filter.Limit = limit
	}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return domain.ItemFilter{}, errors.New("invalid from time, expected RFC3339")
		}
		filter.PublishedAfter = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return domain.ItemFilter{}, errors.New("invalid to time, expected RFC3339")
		}
		filter.PublishedBefore = t
	}

	switch sort := q.Get("sort"); sort {
	case "", "date":
		filter.SortBy = domain.SortByDate
	case "views":
		filter.SortBy = domain.SortByViews
	case "engagement":
		filter.SortBy = domain.SortByEngagement
	default:
		return domain.ItemFilter{}, errors.New("invalid sort field")
	}

	switch order := q.Get("order"); order {
	case "", "desc":
		filter.SortOrder = domain.SortDesc
	case "asc":
		filter.SortOrder = domain.SortAsc
	default:
		return domain.ItemFilter{}, errors.New("invalid sort order")
	}

	return filter, nil
}

// renderJSON renders JSON response with the status code
func (s *Server) renderJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// renderError renders error response as JSON
func (s *Server) renderError(w http.ResponseWriter, code int, message string) {
	s.renderJSON(w, code, map[string]string{"error": message})
}
