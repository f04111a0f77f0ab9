package services

import (
	"context"
	"fmt"
	"time"

	"refill-pricing/internal/apperror"
	"refill-pricing/internal/config"
	"refill-pricing/internal/database"
	"refill-pricing/internal/logger"
	"refill-pricing/internal/models"
	"refill-pricing/internal/redis"
)

const defaultStatsCacheTTL = 10 * time.Minute

// finiteCost отсекает NaN и бесконечности: Postgres хранит их в DOUBLE PRECISION как обычные значения.
const finiteCost = `final_cost NOT IN ('NaN'::float8, 'Infinity'::float8, '-Infinity'::float8)`

// StatsService агрегирует историю расчётов и кеширует выборки.
type StatsService struct {
	db             *database.DB
	cache          quoteCache
	log            *logger.Logger
	cacheTTL       time.Duration
	defaultGroupBy models.StatsGroupBy
}

// NewStatsService создает сервис статистики. cache может быть nil.
func NewStatsService(db *database.DB, cache quoteCache, log *logger.Logger, cfg *config.StatsConfig) *StatsService {
	cacheTTL := defaultStatsCacheTTL
	groupBy := models.StatsGroupNone

	if cfg != nil {
		if cfg.CacheTTLMinutes > 0 {
			cacheTTL = time.Duration(cfg.CacheTTLMinutes) * time.Minute
		}
		if g := models.StatsGroupBy(cfg.DefaultGroupBy); g.Valid() {
			groupBy = g
		}
	}

	return &StatsService{
		db:             db,
		cache:          cache,
		log:            log,
		cacheTTL:       cacheTTL,
		defaultGroupBy: groupBy,
	}
}

// GetQuoteStats возвращает сводку расчётов за период с опциональной разбивкой.
func (s *StatsService) GetQuoteStats(ctx context.Context, filter *models.StatsFilter) (*models.QuoteStats, error) {
	if s.db == nil {
		return nil, apperror.Unavailable("quote history is not configured", nil)
	}
	filter = s.normalizeFilter(filter)
	cacheKey := s.buildCacheKey(filter)

	var cached models.QuoteStats
	if s.tryGetFromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	stats, err := s.fetchSummary(ctx, filter)
	if err != nil {
		return nil, err
	}

	periods, err := s.fetchPeriods(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats.From = filter.From
	stats.To = filter.To
	stats.Periods = periods
	stats.GroupBy = string(filter.GroupBy)
	stats.GeneratedAt = time.Now()

	s.saveToCache(ctx, cacheKey, stats)
	return stats, nil
}

func (s *StatsService) fetchSummary(ctx context.Context, filter *models.StatsFilter) (*models.QuoteStats, error) {
	query := `
		SELECT COUNT(*) AS quotes_count,
		       COUNT(*) FILTER (WHERE subscribed) AS subscribed_count,
		       COUNT(*) FILTER (WHERE coupon) AS coupon_count,
		       COUNT(*) FILTER (WHERE clamped) AS clamped_count,
		       COUNT(*) FILTER (WHERE NOT (` + finiteCost + `)) AS non_finite_count,
		       COALESCE(AVG(final_cost) FILTER (WHERE ` + finiteCost + `), 0) AS average_final_cost
		FROM quotes
		WHERE created_at BETWEEN $1 AND $2
	`

	stats := &models.QuoteStats{}
	row := s.db.QueryRowContext(ctx, query, filter.From, filter.To)
	if err := row.Scan(&stats.QuotesCount, &stats.SubscribedCount, &stats.CouponCount, &stats.ClampedCount, &stats.NonFiniteCount, &stats.AverageFinalCost); err != nil {
		return nil, fmt.Errorf("failed to load quote stats: %w", err)
	}
	return stats, nil
}

func (s *StatsService) fetchPeriods(ctx context.Context, filter *models.StatsFilter) ([]models.StatsPeriod, error) {
	if filter.GroupBy == models.StatsGroupNone {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT date_trunc('%s', created_at) AS period,
		       COUNT(*) AS quotes_count,
		       COALESCE(AVG(final_cost) FILTER (WHERE %s), 0) AS average_final_cost
		FROM quotes
		WHERE created_at BETWEEN $1 AND $2
		GROUP BY period
		ORDER BY period ASC
	`, filter.GroupBy, finiteCost)

	rows, err := s.db.QueryContext(ctx, query, filter.From, filter.To)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats periods: %w", err)
	}
	defer rows.Close()

	var result []models.StatsPeriod
	for rows.Next() {
		var (
			periodTime time.Time
			item       models.StatsPeriod
		)
		if err := rows.Scan(&periodTime, &item.QuotesCount, &item.AverageFinalCost); err != nil {
			return nil, fmt.Errorf("failed to scan stats period: %w", err)
		}
		item.Period = formatPeriod(periodTime, filter.GroupBy)
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stats periods: %w", err)
	}

	return result, nil
}

func (s *StatsService) normalizeFilter(filter *models.StatsFilter) *models.StatsFilter {
	if filter == nil {
		now := time.Now().UTC()
		filter = &models.StatsFilter{From: now.AddDate(0, 0, -30), To: now}
	}
	if !filter.GroupBy.Valid() {
		filter.GroupBy = s.defaultGroupBy
	}
	return filter
}

func (s *StatsService) buildCacheKey(filter *models.StatsFilter) string {
	return redis.GenerateKey(redis.KeyPrefixStats, fmt.Sprintf(
		"quotes:%s:%s:%s",
		filter.From.Format("2006-01-02"),
		filter.To.Format("2006-01-02"),
		filter.GroupBy,
	))
}

func (s *StatsService) tryGetFromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	return s.cache.Get(ctx, key, dest) == nil
}

func (s *StatsService) saveToCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to cache quote stats")
	}
}

func formatPeriod(period time.Time, groupBy models.StatsGroupBy) string {
	switch groupBy {
	case models.StatsGroupMonth:
		return period.Format("2006-01")
	default:
		// для недели это дата понедельника
		return period.Format("2006-01-02")
	}
}
