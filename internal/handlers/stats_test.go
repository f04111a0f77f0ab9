package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"refill-pricing/internal/config"
	"refill-pricing/internal/models"
)

type stubStatsProvider struct {
	stats      *models.QuoteStats
	err        error
	lastFilter *models.StatsFilter
}

func (s *stubStatsProvider) GetQuoteStats(ctx context.Context, filter *models.StatsFilter) (*models.QuoteStats, error) {
	s.lastFilter = filter
	return s.stats, s.err
}

func sampleStats() *models.QuoteStats {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.QuoteStats{
		From:             from,
		To:               from.AddDate(0, 0, 6),
		QuotesCount:      3,
		SubscribedCount:  2,
		CouponCount:      1,
		NonFiniteCount:   1,
		AverageFinalCost: 7.5,
		Periods: []models.StatsPeriod{
			{Period: "2026-01-01", QuotesCount: 2, AverageFinalCost: 7.5},
			{Period: "2026-01-02", QuotesCount: 1, AverageFinalCost: models.Amount(math.NaN())},
		},
		GroupBy: "day",
	}
}

func TestStatsHandler_JSON(t *testing.T) {
	svc := &stubStatsProvider{stats: sampleStats()}
	h := NewStatsHandler(svc, newHandlerTestLogger(), &config.StatsConfig{MaxRangeDays: 30})

	rr := httptest.NewRecorder()
	h.GetQuoteStats(rr, httptest.NewRequest(http.MethodGet, "/api/quotes/stats?from=2026-01-01&to=2026-01-07&group_by=DAY", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	if svc.lastFilter.GroupBy != models.StatsGroupDay {
		t.Fatalf("expected day grouping, got %s", svc.lastFilter.GroupBy)
	}
	if svc.lastFilter.From.Format("2006-01-02") != "2026-01-01" || svc.lastFilter.To.Hour() != 23 {
		t.Fatalf("unexpected range %v..%v", svc.lastFilter.From, svc.lastFilter.To)
	}

	var got map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["quotes_count"] != float64(3) {
		t.Fatalf("unexpected body %v", got)
	}
}

func TestStatsHandler_CSV(t *testing.T) {
	h := NewStatsHandler(&stubStatsProvider{stats: sampleStats()}, newHandlerTestLogger(), nil)

	rr := httptest.NewRecorder()
	h.GetQuoteStats(rr, httptest.NewRequest(http.MethodGet, "/api/quotes/stats?format=csv", nil))

	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("unexpected content-type %s", ct)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "summary,2026-01-01..2026-01-07,3,7.50") {
		t.Fatalf("missing summary row: %s", body)
	}
	if !strings.Contains(body, "period,2026-01-02,1,\n") {
		t.Fatalf("NaN average must be empty: %s", body)
	}
	if !strings.Contains(body, "flags,2,1,0,1") {
		t.Fatalf("missing flags row: %s", body)
	}
}

func TestStatsHandler_BadRequests(t *testing.T) {
	h := NewStatsHandler(&stubStatsProvider{stats: sampleStats()}, newHandlerTestLogger(), &config.StatsConfig{MaxRangeDays: 7})

	for _, q := range []string{
		"?from=2026-13-01",
		"?to=yesterday",
		"?from=2026-02-01&to=2026-01-01",
		"?from=2026-01-01&to=2026-03-01",
		"?group_by=year",
		"?format=xml",
	} {
		rr := httptest.NewRecorder()
		h.GetQuoteStats(rr, httptest.NewRequest(http.MethodGet, "/api/quotes/stats"+q, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("query %s: expected 400, got %d", q, rr.Code)
		}
	}
}

func TestStatsHandler_ServiceError(t *testing.T) {
	h := NewStatsHandler(&stubStatsProvider{err: errors.New("db down")}, newHandlerTestLogger(), nil)
	rr := httptest.NewRecorder()
	h.GetQuoteStats(rr, httptest.NewRequest(http.MethodGet, "/api/quotes/stats", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestStatsHandler_MethodNotAllowed(t *testing.T) {
	h := NewStatsHandler(&stubStatsProvider{}, newHandlerTestLogger(), nil)
	rr := httptest.NewRecorder()
	h.GetQuoteStats(rr, httptest.NewRequest(http.MethodPost, "/api/quotes/stats", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
