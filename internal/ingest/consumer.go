package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"address-search-api/internal/models"
	"address-search-api/internal/service"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const defaultBackoff = time.Second

// Reader is the subset of *kafka.Reader the consumer needs
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AddressAdder validates and stores an address
type AddressAdder interface {
	AddAddress(ctx context.Context, address models.NewAddress) (models.Address, error)
}

// Consumer reads JSON encoded addresses from Kafka and adds them to the store.
// Offsets are committed only once a message is stored or known to be unusable;
// a store failure blocks the partition until the write succeeds.
type Consumer struct {
	reader  Reader
	adder   AddressAdder
	logger  zerolog.Logger
	backoff time.Duration
}

// NewReader creates a consumer group reader with manual commits
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: 0,
		MinBytes:       1,
		MaxBytes:       10e6,
	})
}

// NewConsumer creates a new consumer
func NewConsumer(reader Reader, adder AddressAdder, logger zerolog.Logger) *Consumer {
	return &Consumer{
		reader:  reader,
		adder:   adder,
		logger:  logger.With().Str("component", "ingest").Logger(),
		backoff: defaultBackoff,
	}
}

// Run consumes until ctx is canceled or the reader is closed. It closes the reader on return.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to close kafka reader")
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Error().Err(err).Msg("failed to fetch message")
			if !c.wait(ctx) {
				return nil
			}
			continue
		}

		// a later commit would move the group offset past msg, so it is retried until stored
		for !c.handle(ctx, msg) {
			if !c.wait(ctx) {
				return nil
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ingest: failed to commit offset %d: %w", msg.Offset, err)
		}
	}
}

// handle reports whether msg may be committed
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	event := c.logger.With().
		Str("topic", msg.Topic).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Logger()

	var address models.NewAddress
	if err := json.Unmarshal(msg.Value, &address); err != nil {
		event.Warn().Err(err).Msg("skipping undecodable message")
		return true
	}

	stored, err := c.adder.AddAddress(ctx, address)
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) || errors.Is(err, models.ErrCustomerNotFound) {
			event.Warn().Err(err).Msg("skipping invalid address")
			return true
		}
		event.Error().Err(err).Msg("failed to store address")
		return false
	}

	event.Debug().Int64("id", stored.ID).Msg("address ingested")
	return true
}

func (c *Consumer) wait(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.backoff):
		return true
	}
}
