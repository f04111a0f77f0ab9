package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"refill-pricing/internal/apperror"
	"refill-pricing/internal/config"
	"refill-pricing/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

var statsSummaryColumns = []string{"quotes_count", "subscribed_count", "coupon_count", "clamped_count", "non_finite_count", "average_final_cost"}

func TestStatsService_GetQuoteStats_Summary(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	cache, _ := newMiniredisClient(t)
	service := NewStatsService(db, cache, newTestLogger(), &config.StatsConfig{CacheTTLMinutes: 5})

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) AS quotes_count").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows(statsSummaryColumns).AddRow(4, 3, 2, 1, 1, 8.125))

	filter := &models.StatsFilter{From: from, To: to}
	stats, err := service.GetQuoteStats(context.Background(), filter)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if stats.QuotesCount != 4 || stats.SubscribedCount != 3 || stats.NonFiniteCount != 1 || float64(stats.AverageFinalCost) != 8.125 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.GroupBy != string(models.StatsGroupNone) || stats.Periods != nil {
		t.Fatalf("expected no periods without grouping, got %+v", stats.Periods)
	}

	// второй вызов обслуживается из кеша
	again, err := service.GetQuoteStats(context.Background(), &models.StatsFilter{From: from, To: to})
	if err != nil || again.QuotesCount != 4 {
		t.Fatalf("expected cached stats, got %+v err=%v", again, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStatsService_GetQuoteStats_Periods(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	service := NewStatsService(db, nil, newTestLogger(), &config.StatsConfig{DefaultGroupBy: "month"})

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) AS quotes_count").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows(statsSummaryColumns).AddRow(3, 1, 1, 0, 0, 10.0))
	mock.ExpectQuery("date_trunc\\('month', created_at\\)").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"period", "quotes_count", "average_final_cost"}).
			AddRow(from, 2, 12.5).
			AddRow(from.AddDate(0, 1, 0), 1, 5.0))

	stats, err := service.GetQuoteStats(context.Background(), &models.StatsFilter{From: from, To: to})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(stats.Periods) != 2 || stats.Periods[0].Period != "2026-01" || stats.Periods[1].Period != "2026-02" {
		t.Fatalf("unexpected periods %+v", stats.Periods)
	}
	if stats.GroupBy != "month" {
		t.Fatalf("expected default group by month, got %s", stats.GroupBy)
	}
}

func TestStatsService_GetQuoteStats_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()
	service := NewStatsService(db, nil, newTestLogger(), nil)

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("db down"))

	if _, err := service.GetQuoteStats(context.Background(), nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStatsService_WithoutDatabase(t *testing.T) {
	service := NewStatsService(nil, nil, newTestLogger(), nil)
	if _, err := service.GetQuoteStats(context.Background(), nil); !apperror.Is(err, apperror.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestFormatPeriod(t *testing.T) {
	ts := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if got := formatPeriod(ts, models.StatsGroupWeek); got != "2026-03-09" {
		t.Fatalf("unexpected week label %s", got)
	}
	if got := formatPeriod(ts, models.StatsGroupMonth); got != "2026-03" {
		t.Fatalf("unexpected month label %s", got)
	}
}
