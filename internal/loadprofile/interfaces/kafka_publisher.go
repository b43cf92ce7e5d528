package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"feeder-analytics/internal/loadprofile/application"
)

const publishBatchSize = 500

// MessageWriter is the subset of *kafka.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AggregateMessage is the JSON payload of one period aggregate.
type AggregateMessage struct {
	Period      string  `json:"period"`
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	Feeder      string  `json:"feeder"`
	PeakLoad    float64 `json:"peak_load"`
	Energy      float64 `json:"energy"`
	OutageHours float64 `json:"outage_hours"`
}

// KafkaPublisher publishes one message per period aggregate, keyed by feeder.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaWriter builds a writer for comma-separated brokers.
func NewKafkaWriter(brokers, topic string) (*kafka.Writer, error) {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	if len(addrs) == 0 {
		return nil, errors.New("kafka publisher: no brokers")
	}
	if topic == "" {
		return nil, errors.New("kafka publisher: empty topic")
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, nil
}

// NewKafkaPublisher wraps a message writer.
func NewKafkaPublisher(writer MessageWriter) (*KafkaPublisher, error) {
	if writer == nil {
		return nil, errors.New("kafka publisher: nil writer")
	}
	return &KafkaPublisher{writer: writer}, nil
}

// Name identifies the exporter in logs and metrics.
func (p *KafkaPublisher) Name() string { return "kafka" }

// Export publishes every aggregate in batches.
func (p *KafkaPublisher) Export(ctx context.Context, results application.Results) error {
	batch := make([]kafka.Message, 0, publishBatchSize)
	for _, agg := range results.Aggregates {
		payload, err := json.Marshal(AggregateMessage{
			Period:      agg.Period(),
			Year:        agg.Year,
			Month:       agg.Month,
			Feeder:      agg.SeriesID,
			PeakLoad:    agg.PeakLoad,
			Energy:      agg.Energy,
			OutageHours: agg.OutageHours,
		})
		if err != nil {
			return err
		}
		batch = append(batch, kafka.Message{Key: []byte(agg.SeriesID), Value: payload})
		if len(batch) == publishBatchSize {
			if err := p.writer.WriteMessages(ctx, batch...); err != nil {
				return err
			}
			batch = make([]kafka.Message, 0, publishBatchSize)
		}
	}
	if len(batch) == 0 {
		return nil
	}
	return p.writer.WriteMessages(ctx, batch...)
}

// Close closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
