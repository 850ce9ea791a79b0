package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"charak/internal/audit"
)

// Publisher ships audit events off the device.
type Publisher interface {
	Publish(ctx context.Context, events []audit.Event) error
	Close()
}

// TopicForClinic names the per-clinic export topic.
func TopicForClinic(clinicID string) string {
	return "charak.audit." + strings.ToLower(clinicID)
}

// KafkaPublisher ships audit events to the clinic's topic. Delivery is
// at-least-once; the downstream archive deduplicates on the event HMAC.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher connects to the brokers and ensures the clinic
// topic exists before the first publish.
func NewKafkaPublisher(ctx context.Context, brokers []string, clinicID string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	topic := TopicForClinic(clinicID)
	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

// ensureTopic creates the export topic if the broker does not have it.
func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)

	details, err := adm.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	if details.Has(topic) {
		return nil
	}

	resp, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}

// Publish ships a batch. Records are keyed by encounter id so one
// encounter's chain lands on one partition in order.
func (p *KafkaPublisher) Publish(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal audit event: %w", err)
		}
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(event.EncounterID),
			Value: value,
		})
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit events: %w", err)
	}
	return nil
}

// Close flushes and releases the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

// FanoutPublisher delivers each batch to every sink. Sinks are
// independent; a failure in any of them fails the batch so the worker
// retries, and the idempotent sinks absorb the replay.
type FanoutPublisher struct {
	sinks []Publisher
}

// NewFanoutPublisher combines the given sinks into one publisher.
func NewFanoutPublisher(sinks ...Publisher) *FanoutPublisher {
	return &FanoutPublisher{sinks: sinks}
}

func (p *FanoutPublisher) Publish(ctx context.Context, events []audit.Event) error {
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, events); err != nil {
			return err
		}
	}
	return nil
}

func (p *FanoutPublisher) Close() {
	for _, sink := range p.sinks {
		sink.Close()
	}
}
