package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"webring/internal/hits"
)

// recordKey pins every hit to one partition so offsets give a total order.
const recordKey = "hits"

type kafkaHit struct {
	Slug        string    `json:"slug"`
	VisitorHash string    `json:"visitor_hash"`
	Timestamp   time.Time `json:"ts"`
}

// KafkaStore keeps the hit log in a Kafka topic. Append produces synchronously;
// All reads the topic from the start up to the end offsets observed when the
// call begins, so hits appended concurrently may or may not be included.
type KafkaStore struct {
	producer *kgo.Client
	admin    *kadm.Client
	brokers  []string
	topic    string
}

// NewKafka constructs a Kafka-backed hit store. The producer client is shared;
// every All call opens a short-lived consumer against brokers.
func NewKafka(producer *kgo.Client, brokers []string, topic string) *KafkaStore {
	return &KafkaStore{
		producer: producer,
		admin:    kadm.NewClient(producer),
		brokers:  brokers,
		topic:    topic,
	}
}

// EnsureTopic creates the topic with a single partition if it is missing.
func (s *KafkaStore) EnsureTopic(ctx context.Context) error {
	topics, err := s.admin.ListTopics(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	if topics.Has(s.topic) {
		return nil
	}
	resp, err := s.admin.CreateTopic(ctx, 1, -1, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", s.topic, err)
	}
	if resp.Err != nil {
		return fmt.Errorf("create topic %s: %w", s.topic, resp.Err)
	}
	return nil
}

func (s *KafkaStore) Append(ctx context.Context, slug, visitorHash string, ts time.Time) error {
	value, err := json.Marshal(kafkaHit{Slug: slug, VisitorHash: visitorHash, Timestamp: ts.UTC()})
	if err != nil {
		return fmt.Errorf("encode hit: %w", err)
	}
	rec := &kgo.Record{
		Topic:     s.topic,
		Key:       []byte(recordKey),
		Value:     value,
		Timestamp: ts,
	}
	if err := s.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce hit: %w", err)
	}
	return nil
}

func (s *KafkaStore) All(ctx context.Context) ([]hits.Hit, error) {
	ends, err := s.admin.ListEndOffsets(ctx, s.topic)
	if err != nil {
		return nil, fmt.Errorf("list end offsets: %w", err)
	}
	if err := ends.Error(); err != nil {
		return nil, fmt.Errorf("list end offsets: %w", err)
	}

	remaining := map[int32]int64{}
	partitions := map[int32]kgo.Offset{}
	ends.Each(func(o kadm.ListedOffset) {
		if o.Topic == s.topic && o.Offset > 0 {
			remaining[o.Partition] = o.Offset
			partitions[o.Partition] = kgo.NewOffset().AtStart()
		}
	})
	if len(remaining) == 0 {
		return nil, nil
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumePartitions(map[string]map[int32]kgo.Offset{s.topic: partitions}),
	)
	if err != nil {
		return nil, fmt.Errorf("create hit consumer: %w", err)
	}
	defer consumer.Close()

	type positioned struct {
		partition int32
		offset    int64
		hit       hits.Hit
	}
	var collected []positioned
	var decodeErr error

	for len(remaining) > 0 {
		fetches := consumer.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("read hit topic: %w", err)
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			return nil, fmt.Errorf("read hit topic: %w", errs[0].Err)
		}
		fetches.EachRecord(func(r *kgo.Record) {
			end, ok := remaining[r.Partition]
			if !ok || r.Offset >= end {
				return
			}
			var kh kafkaHit
			if err := json.Unmarshal(r.Value, &kh); err != nil {
				if decodeErr == nil {
					decodeErr = fmt.Errorf("decode hit at %d/%d: %w", r.Partition, r.Offset, err)
				}
			} else {
				collected = append(collected, positioned{
					partition: r.Partition,
					offset:    r.Offset,
					hit: hits.Hit{
						Slug:        kh.Slug,
						VisitorHash: kh.VisitorHash,
						Timestamp:   kh.Timestamp.UTC(),
					},
				})
			}
			if r.Offset+1 >= end {
				delete(remaining, r.Partition)
			}
		})
		if decodeErr != nil {
			return nil, decodeErr
		}
	}

	sort.Slice(collected, func(i, j int) bool {
		if collected[i].partition != collected[j].partition {
			return collected[i].partition < collected[j].partition
		}
		return collected[i].offset < collected[j].offset
	})
	out := make([]hits.Hit, len(collected))
	for i, p := range collected {
		p.hit.ID = int64(i + 1)
		out[i] = p.hit
	}
	return out, nil
}
