// Package consumer reads the garden event topics and hands decoded records to handlers.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/gardenlog/internal/outbox"
	"example.com/gardenlog/internal/platform/logger"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Handlers fans a message out to every handler in order. All handlers run even
// when one fails; the joined error keeps the message uncommitted.
type Handlers []Handler

// Handle implements Handler.
func (hs Handlers) Handle(ctx context.Context, msg Message) error {
	var err error
	for _, h := range hs {
		if hErr := h.Handle(ctx, msg); hErr != nil {
			err = errors.Join(err, hErr)
		}
	}
	return err
}

// Message is the decoded representation of a Kafka record emitted by the outbox dispatcher.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	EventType     string
	UserID        string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(log *logger.Logger) Option {
	return func(p *Processor) {
		if log != nil {
			p.log = log
		}
	}
}

// WithRetries sets how many times a failing handler runs before Run gives up,
// and the pause between attempts.
func WithRetries(attempts int, backoff time.Duration) Option {
	return func(p *Processor) {
		if attempts > 0 {
			p.attempts = attempts
		}
		if backoff >= 0 {
			p.backoff = backoff
		}
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
//
// Offsets are committed in order, so a message whose handler keeps failing
// stops the loop instead of being skipped; the group resumes from the last
// committed offset when the consumer restarts.
type Processor struct {
	reader   Reader
	handler  Handler
	log      *logger.Logger
	attempts int
	backoff  time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:   reader,
		handler:  handler,
		log:      logger.Nop(),
		attempts: 3,
		backoff:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a blocking loop that processes Kafka messages until the context is
// cancelled or a handler exhausts its retries.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.log.Warn("fetch error", "error", err)
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.log.Warn("dropping undecodable record", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", decodeErr)
			observeOutcome(Message{Topic: msg.Topic}, outcomeDecodeError, 0)
			// A record that cannot be decoded never will be; commit it so the partition keeps moving.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.log.Error("commit error after decode failure", "error", commitErr)
			}
			continue
		}

		start := time.Now()
		handleErr := p.handle(ctx, event)
		elapsed := time.Since(start)
		if handleErr != nil {
			observeOutcome(event, outcomeHandlerError, elapsed)
			if errors.Is(handleErr, context.Canceled) {
				return handleErr
			}
			p.log.Error("handler failed, stopping before commit", "event_type", event.EventType, "user_id", event.UserID, "offset", event.Offset, "error", handleErr)
			return fmt.Errorf("handle %s at %s/%d offset %d: %w", event.EventType, event.Topic, event.Partition, event.Offset, handleErr)
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.log.Error("commit error", "error", commitErr)
			continue
		}
		observeOutcome(event, outcomeCommitted, elapsed)
	}
}

func (p *Processor) handle(ctx context.Context, event Message) error {
	var err error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err = p.handler.Handle(ctx, event); err == nil {
			return nil
		}
		if attempt == p.attempts {
			break
		}
		p.log.Warn("handler error, retrying", "event_type", event.EventType, "offset", event.Offset, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff):
		}
	}
	return err
}

func decodeMessage(msg kafka.Message) (Message, error) {
	schemaID, body, err := outbox.DecodeWireFormat(msg.Value)
	if err != nil {
		return Message{}, fmt.Errorf("invalid payload (length %d): %w", len(msg.Value), err)
	}

	eventType, ok := headerValue(msg, outbox.HeaderEventType)
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	userID, _ := headerValue(msg, outbox.HeaderUserID)
	schemaSubject, _ := headerValue(msg, outbox.HeaderSchemaSubject)

	return Message{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Timestamp:     msg.Time,
		EventType:     string(eventType),
		UserID:        string(userID),
		SchemaSubject: string(schemaSubject),
		SchemaID:      schemaID,
		Payload:       json.RawMessage(append([]byte(nil), body...)),
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
