package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"refill-pricing/internal/config"
	"refill-pricing/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

func quoteEventMessage(t *testing.T) *sarama.ConsumerMessage {
	t.Helper()
	ev := models.Event{ID: uuid.New(), Type: models.EventTypeQuoteCalculated}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return &sarama.ConsumerMessage{Value: data, Topic: "quotes"}
}

func TestConsumer_ProcessMessage_WithHandler(t *testing.T) {
	c := &Consumer{log: newTestLogger(), handlers: make(map[models.EventType]EventHandler)}

	called := false
	c.RegisterHandler(models.EventTypeQuoteCalculated, func(ctx context.Context, event *models.Event) error {
		called = true
		return nil
	})

	if err := c.processMessage(quoteEventMessage(t)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatalf("handler not called")
	}
	if c.HandlerCount() != 1 {
		t.Fatalf("handler count expected 1")
	}
}

func TestConsumer_ProcessMessage_NoHandler(t *testing.T) {
	c := &Consumer{log: newTestLogger(), handlers: make(map[models.EventType]EventHandler), ctx: context.Background()}

	if err := c.processMessage(quoteEventMessage(t)); err != nil {
		t.Fatalf("expected no error for missing handler, got %v", err)
	}
}

func TestConsumer_ProcessMessage_HandlerError(t *testing.T) {
	c := &Consumer{log: newTestLogger(), handlers: make(map[models.EventType]EventHandler), ctx: context.Background()}

	c.RegisterHandler(models.EventTypeQuoteCalculated, func(ctx context.Context, event *models.Event) error {
		return fmt.Errorf("fail")
	})

	if err := c.processMessage(quoteEventMessage(t)); err == nil {
		t.Fatalf("expected handler error")
	}
}

func TestConsumer_ProcessMessage_InvalidJSON(t *testing.T) {
	c := &Consumer{log: newTestLogger(), handlers: make(map[models.EventType]EventHandler), ctx: context.Background()}

	msg := &sarama.ConsumerMessage{Value: []byte("not json"), Topic: "quotes"}
	if err := c.processMessage(msg); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}

type mockConsumerGroup struct {
	consumeCount int
}

func (m *mockConsumerGroup) Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	m.consumeCount++
	_ = handler.Setup(nil)
	<-ctx.Done()
	return ctx.Err()
}
func (m *mockConsumerGroup) Errors() <-chan error      { ch := make(chan error); close(ch); return ch }
func (m *mockConsumerGroup) Close() error              { return nil }
func (m *mockConsumerGroup) Pause(map[string][]int32)  {}
func (m *mockConsumerGroup) Resume(map[string][]int32) {}
func (m *mockConsumerGroup) PauseAll()                 {}
func (m *mockConsumerGroup) ResumeAll()                {}

type mockSession struct {
	ctx    context.Context
	marked int
}

func (m *mockSession) Claims() map[string][]int32                                               { return nil }
func (m *mockSession) MemberID() string                                                         { return "" }
func (m *mockSession) GenerationID() int32                                                      { return 0 }
func (m *mockSession) MarkOffset(topic string, partition int32, offset int64, metadata string)  {}
func (m *mockSession) ResetOffset(topic string, partition int32, offset int64, metadata string) {}
func (m *mockSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string)                 { m.marked++ }
func (m *mockSession) Commit()                                                                  {}
func (m *mockSession) Context() context.Context                                                 { return m.ctx }

type mockClaim struct {
	msgs chan *sarama.ConsumerMessage
}

func (m *mockClaim) Topic() string              { return "quotes" }
func (m *mockClaim) Partition() int32           { return 0 }
func (m *mockClaim) InitialOffset() int64       { return 0 }
func (m *mockClaim) HighWaterMarkOffset() int64 { return 0 }
func (m *mockClaim) Messages() <-chan *sarama.ConsumerMessage {
	return m.msgs
}

func TestNewTestConsumer_StartStop(t *testing.T) {
	mockGroup := &mockConsumerGroup{}
	c := NewTestConsumer(mockGroup, newTestLogger())
	if c.consumer != mockGroup {
		t.Fatalf("consumer group not set")
	}
	if err := c.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := c.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if mockGroup.consumeCount == 0 {
		t.Fatalf("expected Consume called at least once")
	}
}

func TestConsumer_StartWithoutGroup(t *testing.T) {
	c := &Consumer{}
	if err := c.Start(); err == nil {
		t.Fatalf("expected error without consumer group")
	}
}

func TestConsumer_Handler(t *testing.T) {
	c := &Consumer{handlers: map[models.EventType]EventHandler{}}
	h := func(ctx context.Context, event *models.Event) error { return nil }
	c.RegisterHandler("custom", h)
	if c.Handler("custom") == nil {
		t.Fatalf("expected handler returned")
	}
	if c.Handler("missing") != nil {
		t.Fatalf("expected nil for unknown event type")
	}
}

func TestConsumer_ConsumeClaim(t *testing.T) {
	c := &Consumer{log: newTestLogger(), handlers: map[models.EventType]EventHandler{}, ctx: context.Background()}
	handled := 0
	c.RegisterHandler(models.EventTypeQuoteCalculated, func(ctx context.Context, event *models.Event) error {
		handled++
		return nil
	})

	msgs := make(chan *sarama.ConsumerMessage, 2)
	msgs <- quoteEventMessage(t)
	msgs <- &sarama.ConsumerMessage{Value: []byte("broken"), Topic: "quotes"}
	close(msgs)

	session := &mockSession{ctx: context.Background()}
	if err := c.ConsumeClaim(session, &mockClaim{msgs: msgs}); err != nil {
		t.Fatalf("consume claim failed: %v", err)
	}
	if handled != 1 {
		t.Fatalf("expected 1 handled event, got %d", handled)
	}
	if session.marked != 2 {
		t.Fatalf("expected both messages marked, got %d", session.marked)
	}
}

func TestNewConsumer_Error(t *testing.T) {
	cfg := &config.KafkaConfig{Brokers: []string{"localhost:0"}, GroupID: "g", Topics: config.Topics{Quotes: "quotes"}}
	if _, err := NewConsumer(cfg, newTestLogger()); err == nil {
		t.Fatalf("expected error creating consumer")
	}
}

func TestConsumer_Cleanup(t *testing.T) {
	c := &Consumer{}
	if err := c.Setup(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := c.Cleanup(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
