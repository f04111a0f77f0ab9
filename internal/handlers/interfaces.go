package handlers

import (
	"context"

	"refill-pricing/internal/models"

	"github.com/google/uuid"
)

// ----- Quotes -----

type QuoteService interface {
	CreateQuote(ctx context.Context, req *models.CreateQuoteRequest) (*models.Quote, error)
	GetQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	ListQuotes(ctx context.Context, limit, offset int) ([]*models.Quote, error)
	InitialDisplay() string
}

// ----- Stats -----

type StatsProvider interface {
	GetQuoteStats(ctx context.Context, filter *models.StatsFilter) (*models.QuoteStats, error)
}

// ----- Health -----

type DBHealth interface {
	Health() error
}

type RedisHealth interface {
	Health(ctx context.Context) error
}

// KafkaHealthCheck проверяет доступность брокеров.
type KafkaHealthCheck func(brokers []string) error
