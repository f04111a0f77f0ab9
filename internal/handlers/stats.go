package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"refill-pricing/internal/config"
	"refill-pricing/internal/logger"
	"refill-pricing/internal/models"
)

// StatsHandler отдаёт сводку по истории расчётов.
type StatsHandler struct {
	service StatsProvider
	log     *logger.Logger
	cfg     *config.StatsConfig
}

// NewStatsHandler создает новый обработчик статистики.
func NewStatsHandler(service StatsProvider, log *logger.Logger, cfg *config.StatsConfig) *StatsHandler {
	return &StatsHandler{
		service: service,
		log:     log,
		cfg:     cfg,
	}
}

// GetQuoteStats возвращает сводку в JSON или CSV (format=csv).
func (h *StatsHandler) GetQuoteStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	filter, format, err := parseStatsFilter(r, h.cfg)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), statsTimeout(h.cfg))
	defer cancel()

	stats, err := h.service.GetQuoteStats(ctx, filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load quote stats")
		return
	}

	if format == "csv" {
		if err := writeStatsCSV(w, stats); err != nil {
			h.log.WithError(err).Warn("Failed to stream stats CSV")
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, stats)
}

func parseStatsFilter(r *http.Request, cfg *config.StatsConfig) (*models.StatsFilter, string, error) {
	query := r.URL.Query()
	now := time.Now().UTC()

	maxRangeDays := 365
	if cfg != nil && cfg.MaxRangeDays > 0 {
		maxRangeDays = cfg.MaxRangeDays
	}

	to := endOfDay(now)
	if toParam := query.Get("to"); toParam != "" {
		parsed, err := time.Parse("2006-01-02", toParam)
		if err != nil {
			return nil, "", fmt.Errorf("invalid 'to' date, expected YYYY-MM-DD")
		}
		to = endOfDay(parsed)
	}

	from := startOfDay(to.AddDate(0, 0, -maxRangeDays+1))
	if fromParam := query.Get("from"); fromParam != "" {
		parsed, err := time.Parse("2006-01-02", fromParam)
		if err != nil {
			return nil, "", fmt.Errorf("invalid 'from' date, expected YYYY-MM-DD")
		}
		from = startOfDay(parsed)
	}

	if from.After(to) {
		return nil, "", fmt.Errorf("'from' date must be before 'to' date")
	}
	if from.Before(startOfDay(to.AddDate(0, 0, -maxRangeDays+1))) {
		return nil, "", fmt.Errorf("date range too wide, max %d days", maxRangeDays)
	}

	// Пустое значение оставляет выбор группировки сервису.
	groupBy := models.StatsGroupBy(strings.ToLower(query.Get("group_by")))
	if groupBy != "" && !groupBy.Valid() {
		return nil, "", fmt.Errorf("group_by must be one of: day, week, month, none")
	}

	format := strings.ToLower(query.Get("format"))
	if format != "" && format != "json" && format != "csv" {
		return nil, "", fmt.Errorf("format must be json or csv")
	}

	return &models.StatsFilter{From: from, To: to, GroupBy: groupBy}, format, nil
}

func writeStatsCSV(w http.ResponseWriter, stats *models.QuoteStats) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=quote_stats.csv")
	w.WriteHeader(http.StatusOK)

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"section", "period", "quotes_count", "average_final_cost"})
	rangeLabel := fmt.Sprintf("%s..%s", stats.From.Format("2006-01-02"), stats.To.Format("2006-01-02"))
	_ = writer.Write([]string{"summary", rangeLabel, strconv.Itoa(stats.QuotesCount), formatCSVAmount(stats.AverageFinalCost)})

	for _, period := range stats.Periods {
		_ = writer.Write([]string{"period", period.Period, strconv.Itoa(period.QuotesCount), formatCSVAmount(period.AverageFinalCost)})
	}

	_ = writer.Write([]string{})
	_ = writer.Write([]string{"section", "subscribed_count", "coupon_count", "clamped_count", "non_finite_count"})
	_ = writer.Write([]string{
		"flags",
		strconv.Itoa(stats.SubscribedCount),
		strconv.Itoa(stats.CouponCount),
		strconv.Itoa(stats.ClampedCount),
		strconv.Itoa(stats.NonFiniteCount),
	})

	writer.Flush()
	return writer.Error()
}

func formatCSVAmount(a models.Amount) string {
	v := float64(a)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return fmt.Sprintf("%.2f", v)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Millisecond*999), time.UTC)
}

func statsTimeout(cfg *config.StatsConfig) time.Duration {
	if cfg != nil && cfg.RequestTimeoutSeconds > 0 {
		return time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}
	return 5 * time.Second
}
