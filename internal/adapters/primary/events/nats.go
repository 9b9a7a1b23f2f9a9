package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kerri-knier/blog/internal/adapters/secondary/eventbroker"
	"github.com/kerri-knier/blog/internal/monitoring"
)

// Subscriber est la partie de *nats.Conn utilisée pour s'abonner.
type Subscriber interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// EventHandler consomme les événements publiés par le PostStore et les
// journalise, avec la trace de la requête d'origine.
type EventHandler struct {
	tracer trace.Tracer
}

func NewEventHandler() *EventHandler {
	return &EventHandler{tracer: otel.Tracer("blog/events")}
}

// Register abonne le handler aux deux sujets.
func (h *EventHandler) Register(nc Subscriber) error {
	if _, err := nc.Subscribe(eventbroker.SubjectPostCreated, h.HandlePostCreated); err != nil {
		return err
	}
	_, err := nc.Subscribe(eventbroker.SubjectPostDeleted, h.HandlePostDeleted)
	return err
}

func (h *EventHandler) start(msg *nats.Msg, name string) (context.Context, trace.Span) {
	// Le contexte de trace arrive dans les headers NATS
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))
	return h.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindConsumer))
}

func (h *EventHandler) HandlePostCreated(msg *nats.Msg) {
	ctx, span := h.start(msg, "process_post_created")
	defer span.End()

	var event eventbroker.PostCreatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		span.RecordError(err)
		monitoring.PostEvents.WithLabelValues(msg.Subject, "invalid").Inc()
		slog.ErrorContext(ctx, "❌ Invalid event format", "subject", msg.Subject, "error", err)
		return
	}

	span.SetAttributes(attribute.String("post.id", event.ID), attribute.String("post.month", event.Month))
	monitoring.PostEvents.WithLabelValues(msg.Subject, "ok").Inc()
	slog.InfoContext(ctx, "📨 Post created", "post_id", event.ID, "month", event.Month, "created", event.Created)
}

func (h *EventHandler) HandlePostDeleted(msg *nats.Msg) {
	ctx, span := h.start(msg, "process_post_deleted")
	defer span.End()

	id := string(msg.Data)
	if id == "" {
		monitoring.PostEvents.WithLabelValues(msg.Subject, "invalid").Inc()
		slog.ErrorContext(ctx, "❌ Delete event without post id")
		return
	}

	span.SetAttributes(attribute.String("post.id", id))
	monitoring.PostEvents.WithLabelValues(msg.Subject, "ok").Inc()
	slog.InfoContext(ctx, "📨 Post deleted", "post_id", id)
}
