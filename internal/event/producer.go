package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/kafka"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/logger"
)

// Topic suffixes, joined to the configured prefix.
const (
	topicWishlistToggled = "wishlist.toggled"
	topicProductViewed   = "product.viewed"
)

// Event types carried in the envelope.
const (
	TypeWishlistToggled = "wishlist.toggled"
	TypeProductViewed   = "product.viewed"
)

// AggregateTypeShopper is the aggregate every storefront event belongs to.
const AggregateTypeShopper = "shopper"

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront"

// WishlistToggledData is the payload for a wishlist.toggled event.
type WishlistToggledData struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Added     bool   `json:"added"`
}

// ProductViewedData is the payload for a product.viewed event.
type ProductViewedData struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	ViewCount int    `json:"view_count"`
}

// Sink is what Producer needs from the Kafka client.
type Sink interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	sink   Sink
	prefix string
	logger *slog.Logger
}

// NewProducer creates a new event producer. Topics are "<prefix>.<event>".
func NewProducer(sink Sink, prefix string, logger *slog.Logger) *Producer {
	return &Producer{
		sink:   sink,
		prefix: prefix,
		logger: logger,
	}
}

// WishlistTopic returns the topic wishlist events are published to.
func (p *Producer) WishlistTopic() string { return p.topic(topicWishlistToggled) }

// ViewTopic returns the topic view events are published to.
func (p *Producer) ViewTopic() string { return p.topic(topicProductViewed) }

func (p *Producer) topic(suffix string) string {
	if p.prefix == "" {
		return suffix
	}
	return p.prefix + "." + suffix
}

// PublishWishlistToggled publishes a wishlist.toggled event.
func (p *Producer) PublishWishlistToggled(ctx context.Context, userID, productID string, added bool) error {
	data := WishlistToggledData{UserID: userID, ProductID: productID, Added: added}
	if err := p.publish(ctx, p.WishlistTopic(), TypeWishlistToggled, userID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published wishlist.toggled event",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.Bool("added", added),
	)
	return nil
}

// PublishProductViewed publishes a product.viewed event.
func (p *Producer) PublishProductViewed(ctx context.Context, userID, productID string, viewCount int) error {
	data := ProductViewedData{UserID: userID, ProductID: productID, ViewCount: viewCount}
	if err := p.publish(ctx, p.ViewTopic(), TypeProductViewed, userID, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published product.viewed event",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.Int("view_count", viewCount),
	)
	return nil
}

func (p *Producer) publish(ctx context.Context, topic, eventType, userID string, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, userID, AggregateTypeShopper, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	if sid := logger.SessionIDFromContext(ctx); sid != "" {
		evt.WithMetadata("session_id", sid)
	}

	if err := p.sink.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return nil
}

// Noop discards every event. It is used when Kafka is disabled.
type Noop struct{}

// PublishWishlistToggled implements the publisher contract and does nothing.
func (Noop) PublishWishlistToggled(context.Context, string, string, bool) error { return nil }

// PublishProductViewed implements the publisher contract and does nothing.
func (Noop) PublishProductViewed(context.Context, string, string, int) error { return nil }
