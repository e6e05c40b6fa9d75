// Package realtime carries place change events between running clients over
// a Kafka topic.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"geoloc/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageSource is a stream of Kafka messages with manual offset commits.
// The Messages channel is closed when the source stops.
type MessageSource interface {
	Messages() <-chan kafka.Message
	CommitOffset(ctx context.Context, msg kafka.Message) error
}

// Sender writes one keyed message.
type Sender interface {
	Send(ctx context.Context, key, value []byte) error
}

// Publisher announces place events on the topic, keyed by place id.
type Publisher struct {
	sender Sender
}

func NewPublisher(s Sender) *Publisher {
	return &Publisher{sender: s}
}

func (p *Publisher) Publish(ctx context.Context, e models.PlaceEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Kind, err)
	}
	if err := p.sender.Send(ctx, []byte(e.PlaceID), data); err != nil {
		return fmt.Errorf("publish %s event for place %s: %w", e.Kind, e.PlaceID, err)
	}
	return nil
}

// Feed decodes place events from a message source.
type Feed struct {
	source MessageSource
}

func NewFeed(source MessageSource) *Feed {
	return &Feed{source: source}
}

// Events streams decoded events until the source closes or ctx is done.
// A message's offset is committed only once its event has been received from
// the returned channel. Undecodable messages are logged and skipped.
func (f *Feed) Events(ctx context.Context) <-chan models.PlaceEvent {
	out := make(chan models.PlaceEvent)
	go func() {
		defer close(out)

		for {
			var msg kafka.Message
			var ok bool
			select {
			case msg, ok = <-f.source.Messages():
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}

			var event models.PlaceEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("Skipping malformed place event at offset %d: %v", msg.Offset, err)
				continue
			}
			if event.Kind == "" || event.PlaceID == "" {
				log.Printf("Skipping incomplete place event at offset %d", msg.Offset)
				continue
			}

			select {
			case out <- event:
			case <-ctx.Done():
				return
			}

			if err := f.source.CommitOffset(ctx, msg); err != nil {
				log.Printf("Failed to commit offset: %v", err)
			}
		}
	}()
	return out
}
