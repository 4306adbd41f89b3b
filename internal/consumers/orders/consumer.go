package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/spiralshops/spiral-loyalty/pkg/enums"
	"github.com/spiralshops/spiral-loyalty/pkg/events"
	"github.com/spiralshops/spiral-loyalty/pkg/logger"
)

type deliveryConfirmer interface {
	ConfirmOrder(ctx context.Context, orderID string) (int64, error)
}

type referralQualifier interface {
	Qualify(ctx context.Context, refereeID uuid.UUID) (bool, error)
}

// Consumer watches SPIRAL order events and settles loyalty on delivery:
// pending purchase points complete and the buyer's referral qualifies.
// Delivery is at-least-once; both handlers absorb replays on their own, so
// no dedup store sits in front of them.
type Consumer struct {
	ledger       deliveryConfirmer
	referrals    referralQualifier
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer builds an order events consumer.
func NewConsumer(ledger deliveryConfirmer, referrals referralQualifier, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if referrals == nil {
		return nil, fmt.Errorf("referrals service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("order events subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		ledger:       ledger,
		referrals:    referrals,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
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
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventOrderDelivered) {
		c.logg.Info(logCtx, "skipping non-delivery event")
		return processResult{ack: true}
	}

	var envelope events.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	var payload orderDeliveredPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}
	if strings.TrimSpace(payload.OrderID) == "" {
		c.logg.Error(logCtx, "payload missing order id", fmt.Errorf("event %s has no order id", envelope.EventID))
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id": envelope.EventID,
		"order_id": payload.OrderID,
	})

	if err := c.handleDelivery(ctx, payload, logCtx); err != nil {
		c.logg.Error(logCtx, "delivery handling failed", err)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handleDelivery(ctx context.Context, payload orderDeliveredPayload, logCtx context.Context) error {
	var errs error

	completed, err := c.ledger.ConfirmOrder(ctx, payload.OrderID)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("confirm order: %w", err))
	} else if completed > 0 {
		c.logg.Info(c.logg.WithFields(logCtx, map[string]any{"entries_completed": completed}), "purchase points completed")
	}

	if payload.BuyerAccountID != uuid.Nil {
		qualified, err := c.referrals.Qualify(ctx, payload.BuyerAccountID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("qualify referral: %w", err))
		} else if qualified {
			c.logg.Info(logCtx, "referral qualified on first delivery")
		}
	}

	return errs
}

type orderDeliveredPayload struct {
	OrderID        string    `json:"orderId"`
	BuyerAccountID uuid.UUID `json:"buyerAccountId"`
}
