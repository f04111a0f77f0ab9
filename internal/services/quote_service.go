package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"refill-pricing/internal/apperror"
	"refill-pricing/internal/calculator"
	"refill-pricing/internal/database"
	"refill-pricing/internal/logger"
	"refill-pricing/internal/metrics"
	"refill-pricing/internal/models"
	"refill-pricing/internal/redis"

	"github.com/google/uuid"
)

const defaultQuoteCacheTTL = 15 * time.Minute

type quoteCache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

// QuoteEventPublisher публикует события о расчётах.
type QuoteEventPublisher interface {
	PublishQuoteCalculated(quote *models.Quote) error
}

// QuoteService считает стоимость рецепта и ведёт историю расчётов.
type QuoteService struct {
	calc     *calculator.Controller
	db       *database.DB
	cache    quoteCache
	events   QuoteEventPublisher
	metrics  *metrics.Metrics
	log      *logger.Logger
	cacheTTL time.Duration
}

// NewQuoteService создаёт сервис расчётов. db, cache, events и m могут быть nil:
// тогда соответствующий шаг пропускается.
func NewQuoteService(calc *calculator.Controller, db *database.DB, cache quoteCache, events QuoteEventPublisher, m *metrics.Metrics, log *logger.Logger, cacheTTL time.Duration) *QuoteService {
	if cacheTTL <= 0 {
		cacheTTL = defaultQuoteCacheTTL
	}
	return &QuoteService{
		calc:     calc,
		db:       db,
		cache:    cache,
		events:   events,
		metrics:  m,
		log:      log,
		cacheTTL: cacheTTL,
	}
}

// InitialDisplay возвращает текст вывода до первого расчёта.
func (s *QuoteService) InitialDisplay() string {
	return s.calc.InitialText()
}

// CreateQuote выполняет расчёт, сохраняет его и публикует событие.
func (s *QuoteService) CreateQuote(ctx context.Context, req *models.CreateQuoteRequest) (*models.Quote, error) {
	started := time.Now()

	var display string
	res, err := s.calc.CalculateCost(calculator.Input{
		Price:      req.Price,
		Refills:    req.Refills,
		Subscribed: req.Subscribed,
		Coupon:     req.Coupon,
	}, calculator.DisplayFunc(func(text string) { display = text }))
	if err != nil {
		if s.metrics != nil {
			s.metrics.QuotesRejected.Inc()
		}
		return nil, err
	}

	quote := &models.Quote{
		ID:                uuid.New(),
		PriceInput:        req.Price,
		RefillsInput:      req.Refills,
		Subscribed:        req.Subscribed,
		Coupon:            req.Coupon,
		PricePerRefill:    models.Amount(res.PricePerRefill),
		Refills:           models.Amount(res.Refills),
		InitialCost:       models.Amount(res.InitialCost),
		AfterSubscription: models.Amount(res.AfterSubscription),
		FinalCost:         models.Amount(res.FinalCost),
		Clamped:           res.Clamped,
		Display:           display,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.saveQuote(ctx, quote); err != nil {
		return nil, err
	}

	s.cacheQuote(ctx, quote)

	if s.events != nil {
		if err := s.events.PublishQuoteCalculated(quote); err != nil {
			s.log.WithError(err).WithField("quote_id", quote.ID).Error("Failed to publish quote calculated event")
		}
	}

	finite := !math.IsNaN(res.FinalCost) && !math.IsInf(res.FinalCost, 0)
	if s.metrics != nil {
		s.metrics.ObserveQuote(req.Subscribed, req.Coupon, finite)
		s.metrics.CalculationDuration.Observe(time.Since(started).Seconds())
	}

	s.log.WithField("quote_id", quote.ID).
		WithField("display", quote.Display).
		WithField("finite", finite).
		Info("Quote calculated")

	return quote, nil
}

// GetQuote возвращает расчёт по ID, сначала из кеша, затем из базы.
func (s *QuoteService) GetQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	key := redis.GenerateKey(redis.KeyPrefixQuote, id.String())
	if s.cache != nil {
		var cached models.Quote
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.log.WithError(err).WithField("key", key).Warn("Failed to read quote from cache")
		}
	}

	if s.db == nil {
		return nil, apperror.Unavailable("quote history is not configured", nil)
	}

	query := `
		SELECT id, price_input, refills_input, subscribed, coupon, price_per_refill, refills,
		       initial_cost, after_subscription, final_cost, clamped, display, created_at
		FROM quotes
		WHERE id = $1
	`

	quote := &models.Quote{}
	if err := scanQuote(s.db.QueryRowContext(ctx, query, id), quote); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("quote not found", err)
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	s.cacheQuote(ctx, quote)
	return quote, nil
}

// ListQuotes возвращает последние расчёты.
func (s *QuoteService) ListQuotes(ctx context.Context, limit, offset int) ([]*models.Quote, error) {
	if s.db == nil {
		return nil, apperror.Unavailable("quote history is not configured", nil)
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, price_input, refills_input, subscribed, coupon, price_per_refill, refills,
		       initial_cost, after_subscription, final_cost, clamped, display, created_at
		FROM quotes
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]*models.Quote, 0, limit)
	for rows.Next() {
		q := &models.Quote{}
		if err := scanQuote(rows, q); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotes: %w", err)
	}

	return quotes, nil
}

func (s *QuoteService) saveQuote(ctx context.Context, q *models.Quote) error {
	if s.db == nil {
		return nil
	}

	query := `
		INSERT INTO quotes (id, price_input, refills_input, subscribed, coupon, price_per_refill, refills,
		                    initial_cost, after_subscription, final_cost, clamped, display, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.db.ExecContext(ctx, query,
		q.ID, q.PriceInput, q.RefillsInput, q.Subscribed, q.Coupon,
		float64(q.PricePerRefill), float64(q.Refills), float64(q.InitialCost),
		float64(q.AfterSubscription), float64(q.FinalCost), q.Clamped, q.Display, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save quote: %w", err)
	}
	return nil
}

func (s *QuoteService) cacheQuote(ctx context.Context, q *models.Quote) {
	if s.cache == nil {
		return
	}
	key := redis.GenerateKey(redis.KeyPrefixQuote, q.ID.String())
	if err := s.cache.Set(ctx, key, q, s.cacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Failed to cache quote")
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuote(row rowScanner, q *models.Quote) error {
	return row.Scan(
		&q.ID, &q.PriceInput, &q.RefillsInput, &q.Subscribed, &q.Coupon,
		&q.PricePerRefill, &q.Refills, &q.InitialCost, &q.AfterSubscription, &q.FinalCost,
		&q.Clamped, &q.Display, &q.CreatedAt,
	)
}
