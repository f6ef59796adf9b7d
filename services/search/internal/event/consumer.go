package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	pkgkafka "github.com/Anitha-22/myecommerce/pkg/kafka"
)

// Source identifies events published by this service.
const Source = "search-service"

// Product change topics. The event type equals the topic name.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
	TopicProductDeleted = pkgkafka.Topic("product", "deleted")
)

// Topics lists every topic the consumer subscribes to.
func Topics() []string {
	return []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted}
}

// ProductEventData is the payload of every product change event.
type ProductEventData struct {
	ID int64 `json:"id"`
}

// NewProductEvent builds a change event for product id.
func NewProductEvent(eventType string, id int64) (*pkgkafka.Event, error) {
	return pkgkafka.NewEvent(eventType, "product", strconv.FormatInt(id, 10), Source, ProductEventData{ID: id})
}

// ProductSyncer applies single-product changes to the index.
type ProductSyncer interface {
	SyncProduct(ctx context.Context, id int64) error
	RemoveProduct(ctx context.Context, id int64) error
}

// Consumer handles Kafka events related to product changes for search indexing.
type Consumer struct {
	syncer ProductSyncer
	logger *slog.Logger
}

// NewConsumer creates a new event consumer for the search service.
func NewConsumer(syncer ProductSyncer, logger *slog.Logger) *Consumer {
	return &Consumer{
		syncer: syncer,
		logger: logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated:
		id, err := productID(event)
		if err != nil {
			return err
		}
		if err := c.syncer.SyncProduct(ctx, id); err != nil {
			return fmt.Errorf("handle %s: %w", event.EventType, err)
		}
		return nil

	case TopicProductDeleted:
		id, err := productID(event)
		if err != nil {
			return err
		}
		if err := c.syncer.RemoveProduct(ctx, id); err != nil {
			return fmt.Errorf("handle %s: %w", event.EventType, err)
		}
		return nil

	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// productID reads the product ID from the payload, falling back to the
// aggregate ID for events published without data.
func productID(event *pkgkafka.Event) (int64, error) {
	if len(event.Data) > 0 {
		var data ProductEventData
		if err := event.UnmarshalData(&data); err != nil {
			return 0, fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
		}
		if data.ID > 0 {
			return data.ID, nil
		}
	}

	id, err := strconv.ParseInt(event.AggregateID, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s event %s: invalid product id %q", event.EventType, event.EventID, event.AggregateID)
	}
	return id, nil
}
