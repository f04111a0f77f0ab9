package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"refill-pricing/internal/breaker"
	"refill-pricing/internal/config"
	"refill-pricing/internal/logger"
	"refill-pricing/internal/metrics"
	"refill-pricing/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Producer публикует доменные события в Kafka
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
	breaker  *breaker.Breaker
	metrics  *metrics.Metrics
}

// NewProducer создает синхронного продюсера Kafka
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Net.DialTimeout = 3 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.WithField("brokers", cfg.Brokers).Info("Kafka producer created")

	return &Producer{
		producer: producer,
		log:      log,
		topics:   &cfg.Topics,
	}, nil
}

// NewTestProducer создает продюсера поверх заданного SyncProducer (для тестов)
func NewTestProducer(producer sarama.SyncProducer, topics config.Topics, log *logger.Logger) *Producer {
	return &Producer{
		producer: producer,
		log:      log,
		topics:   &topics,
	}
}

// WithBreaker подключает circuit breaker и метрики к публикации
func (p *Producer) WithBreaker(b *breaker.Breaker, m *metrics.Metrics) *Producer {
	p.breaker = b
	p.metrics = m
	return p
}

// PublishQuoteCalculated публикует событие о новом расчёте
func (p *Producer) PublishQuoteCalculated(quote *models.Quote) error {
	data, err := json.Marshal(models.QuoteCalculatedData{
		QuoteID:    quote.ID,
		Subscribed: quote.Subscribed,
		Coupon:     quote.Coupon,
		FinalCost:  quote.FinalCost,
		Display:    quote.Display,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal quote event data: %w", err)
	}

	event := models.Event{
		ID:        uuid.New(),
		Type:      models.EventTypeQuoteCalculated,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	return p.publishEvent(p.topics.Quotes, quote.ID.String(), event)
}

// publishEvent сериализует событие и отправляет его в топик
func (p *Producer) publishEvent(topic, key string, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	send := func() error {
		partition, offset, err := p.producer.SendMessage(msg)
		if err != nil {
			return fmt.Errorf("failed to send event %s: %w", event.Type, err)
		}
		p.log.WithField("event_id", event.ID).
			WithField("topic", topic).
			WithField("partition", partition).
			WithField("offset", offset).
			Debug("Event published")
		return nil
	}

	if p.breaker != nil {
		err = p.breaker.Do(send)
	} else {
		err = send()
	}

	if p.metrics != nil {
		result := "success"
		if err != nil {
			result = "failure"
		}
		p.metrics.EventsProduced.WithLabelValues(result).Inc()
	}
	return err
}

// Close закрывает продюсера
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
