package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kerri-knier/blog/internal/core/domain"
)

const (
	SubjectPostCreated = "post.created"
	SubjectPostDeleted = "post.deleted"
)

// Conn est la partie de *nats.Conn utilisée par le publisher.
type Conn interface {
	PublishMsg(m *nats.Msg) error
}

type NatsPublisher struct {
	nc Conn
}

func NewNatsPublisher(nc Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

// Structure de l'event (contrat implicite avec les consommateurs)
type PostCreatedEvent struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Month   string    `json:"month"`
	Text    string    `json:"text"`
}

func (p *NatsPublisher) PublishPostCreated(ctx context.Context, post *domain.Post) error {
	data, err := json.Marshal(PostCreatedEvent{
		ID:      post.ID,
		Created: post.Created,
		Month:   post.Month,
		Text:    post.Text,
	})
	if err != nil {
		return fmt.Errorf("marshalling error: %w", err)
	}

	slog.DebugContext(ctx, "📢 Publishing event", "topic", SubjectPostCreated, "post_id", post.ID)
	return p.publish(ctx, SubjectPostCreated, data)
}

func (p *NatsPublisher) PublishPostDeleted(ctx context.Context, postID string) error {
	return p.publish(ctx, SubjectPostDeleted, []byte(postID))
}

func (p *NatsPublisher) publish(ctx context.Context, subject string, data []byte) error {
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	// Le TraceID courant part dans les headers NATS
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))
	return p.nc.PublishMsg(msg)
}

// NoopPublisher est utilisé quand NATS n'est pas configuré.
type NoopPublisher struct{}

func (NoopPublisher) PublishPostCreated(context.Context, *domain.Post) error { return nil }
func (NoopPublisher) PublishPostDeleted(context.Context, string) error        { return nil }
