package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/aq2208/commerce-api/internal/usecase"
)

// AnalyticsSink forwards storefront events to the external event stream.
// Callers treat it as fire-and-forget; a broker outage must never surface
// into cart or finalize results.
type AnalyticsSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewAnalyticsSink(producer sarama.SyncProducer, topic string) *AnalyticsSink {
	return &AnalyticsSink{producer: producer, topic: topic}
}

func (s *AnalyticsSink) Publish(_ context.Context, ev usecase.AnalyticsEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		// Keyed by user so one user's events stay ordered per partition.
		Key:   sarama.StringEncoder(ev.UserID),
		Value: sarama.ByteEncoder(body),
	}
	_, _, err = s.producer.SendMessage(msg)
	return err
}

func (s *AnalyticsSink) Close() error { return s.producer.Close() }

var _ usecase.EventSink = (*AnalyticsSink)(nil)
