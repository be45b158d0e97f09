package domainevents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/rosterhub-backend/internal/activity"
	"github.com/angelmondragon/rosterhub-backend/internal/audit"
	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/events"
	"github.com/angelmondragon/rosterhub-backend/pkg/events/payloads"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
	"github.com/angelmondragon/rosterhub-backend/pkg/metrics"
	"github.com/google/uuid"
)

// ConsumerName namespaces this consumer's idempotency keys.
const ConsumerName = "domain-events"

type emitter interface {
	Emit(ctx context.Context, req notifications.EmitRequest) (notifications.Outcome, error)
}

type recorder interface {
	Record(ctx context.Context, action enums.ActivityAction, snapshot audit.Snapshot, m activity.Mutation) error
}

type guard interface {
	Claim(ctx context.Context, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, eventID uuid.UUID) error
}

// Consumer turns domain events from Pub/Sub into notifications and audit lines.
type Consumer struct {
	subscription *pubsub.Subscriber
	decoders     *events.DecoderRegistry
	emitter      emitter
	recorder     recorder
	guard        guard
	metrics      *metrics.ConsumerMetrics
	logg         *logger.Logger
}

// Params groups consumer dependencies.
type Params struct {
	Subscription *pubsub.Subscriber
	Decoders     *events.DecoderRegistry
	Emitter      emitter
	Recorder     recorder
	Guard        guard
	Metrics      *metrics.ConsumerMetrics
	Logger       *logger.Logger
}

// NewConsumer builds a domain events consumer. Subscription may be nil in tests that
// call process directly.
func NewConsumer(params Params) (*Consumer, error) {
	if params.Emitter == nil {
		return nil, fmt.Errorf("notification emitter required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("activity recorder required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	decoders := params.Decoders
	if decoders == nil {
		decoders = events.DefaultDecoders()
	}
	return &Consumer{
		subscription: params.Subscription,
		decoders:     decoders,
		emitter:      params.Emitter,
		recorder:     params.Recorder,
		guard:        params.Guard,
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("domain subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack     bool
	nack    bool
	outcome string
}

func acked(outcome string) processResult  { return processResult{ack: true, outcome: outcome} }
func nacked(outcome string) processResult { return processResult{nack: true, outcome: outcome} }

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	started := time.Now()
	eventType := enums.DomainEventType(msg.Attributes["event_type"])
	result := c.handle(ctx, msg, eventType)
	c.metrics.ObserveDuration(string(eventType), time.Since(started))
	c.metrics.IncOutcome(string(eventType), result.outcome)
	return result
}

func (c *Consumer) handle(ctx context.Context, msg *pubsub.Message, eventType enums.DomainEventType) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unhandled event type")
		return acked("skipped")
	}

	var envelope events.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return acked("malformed")
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return acked("malformed")
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	version := envelope.Version
	if version == 0 {
		version = 1
	}
	payload, err := c.decoders.Decode(eventType, version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return acked("malformed")
	}

	seen, err := c.guard.Claim(ctx, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return nacked("retry")
	}
	if seen {
		c.logg.Info(logCtx, "event already processed")
		return acked("duplicate")
	}

	if err := c.dispatch(logCtx, payload, envelope.Actor); err != nil {
		if !pkgerrors.IsRetryable(err) {
			c.logg.Error(logCtx, "domain event rejected", err)
			return acked("rejected")
		}
		c.logg.Error(logCtx, "domain event handling failed", err)
		if releaseErr := c.guard.Release(ctx, eventID); releaseErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency claim", releaseErr)
		}
		return nacked("retry")
	}
	return acked("processed")
}

func (c *Consumer) dispatch(ctx context.Context, payload any, actor *events.ActorRef) error {
	switch event := payload.(type) {
	case payloads.NotificationRequestedEvent:
		outcome, err := c.emitter.Emit(ctx, emitRequest(event))
		if err != nil {
			return err
		}
		if outcome.Suppressed {
			c.logg.Info(ctx, "notification suppressed")
		}
		return nil
	case payloads.EntityChangedEvent:
		return c.recordChange(ctx, event, actor)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payload %T", payload))
	}
}

func (c *Consumer) recordChange(ctx context.Context, event payloads.EntityChangedEvent, actor *events.ActorRef) error {
	if !event.Action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid activity action "+string(event.Action))
	}
	scope := strings.TrimSpace(event.TeamID)
	performedBy := strings.TrimSpace(event.PerformedBy)
	if actor != nil {
		if scope == "" {
			scope = actor.TeamID
		}
		if performedBy == "" {
			performedBy = actor.UserID
		}
	}

	m := activity.Mutation{Scope: scope, Actor: performedBy}
	if event.Notify != nil {
		req := emitRequest(*event.Notify)
		m.Notify = &req
	}

	return c.recorder.Record(ctx, event.Action, audit.Snapshot{
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		EntityName: event.EntityName,
		Details:    event.Details,
	}, m)
}

func emitRequest(event payloads.NotificationRequestedEvent) notifications.EmitRequest {
	return notifications.EmitRequest{
		Category: event.Category,
		OwnerID:  event.OwnerID,
		Title:    event.Title,
		Body:     event.Body,
		Metadata: event.Metadata,
	}
}
