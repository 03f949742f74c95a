package billing

import (
	"context"
	"fmt"

	"github.com/flowdesk/backend/internal/domain/billing"
	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// HandleWebhook verifies and applies a Stripe webhook delivery. Redelivered
// events are acknowledged without repeating side effects, and unknown
// event types are acknowledged as not handled.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (result *WebhookResult, err error) {
	if s.gateway == nil {
		return nil, ErrBillingDisabled
	}

	evt, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("Rejected webhook", zap.Error(err))
		return nil, ErrInvalidWebhook
	}

	ctx, span := telemetry.StartSpan(ctx, "billing", "HandleWebhook",
		attribute.String("stripe.event_id", evt.ID),
		attribute.String("stripe.event_type", evt.Type),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	s.metrics.webhooks.WithLabelValues(evt.Type).Inc()
	result = &WebhookResult{EventID: evt.ID, EventType: evt.Type, Processed: true}

	if s.processed != nil {
		fresh, err := s.processed.MarkProcessed(ctx, evt.ID, s.dedupTTL)
		if err != nil {
			return nil, fmt.Errorf("billing: failed to record webhook %s: %w", evt.ID, err)
		}
		if !fresh {
			s.logger.Info("Skipping duplicate webhook", zap.String("event_id", evt.ID))
			result.Message = "Duplicate event"
			return result, nil
		}
	}

	switch {
	case evt.Subscription != nil:
		err = s.applySubscription(ctx, evt)
	case evt.Invoice != nil:
		err = s.applyInvoice(ctx, evt)
	default:
		s.logger.Debug("Unhandled webhook event type", zap.String("event_type", evt.Type))
		result.Processed = false
		result.Message = "Event type not handled"
	}

	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type),
			zap.Error(err),
		)
		if s.processed != nil {
			if ferr := s.processed.Forget(ctx, evt.ID); ferr != nil {
				s.logger.Error("Failed to release webhook id", zap.String("event_id", evt.ID), zap.Error(ferr))
			}
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) applySubscription(ctx context.Context, evt *billing.WebhookEvent) error {
	sub := evt.Subscription
	if sub.CustomerID == "" {
		s.logger.Warn("Subscription has no customer, skipping", zap.String("subscription_id", sub.ID))
		return nil
	}
	account, err := s.accounts.FindByStripeCustomerID(ctx, sub.CustomerID)
	if err != nil {
		if isNotFound(err) {
			// The customer may belong to another environment sharing the Stripe account
			s.logger.Warn("No account for Stripe customer", zap.String("customer_id", sub.CustomerID))
			return nil
		}
		return err
	}

	// A late event for a replaced subscription must not overwrite the current one
	if account.StripeSubscriptionID != "" && account.StripeSubscriptionID != sub.ID && account.HasLiveSubscription() {
		s.logger.Info("Ignoring event for a stale subscription",
			zap.String("account_id", account.ID.String()),
			zap.String("subscription_id", sub.ID),
		)
		return nil
	}

	if evt.Type == billing.EventSubscriptionDeleted {
		sub.Status = identity.SubscriptionCanceled
	}
	return s.sync(ctx, account, sub)
}

func (s *Service) applyInvoice(ctx context.Context, evt *billing.WebhookEvent) error {
	in := evt.Invoice
	if in.CustomerID == "" {
		s.logger.Warn("Invoice has no customer, skipping", zap.String("invoice_id", in.Input.StripeInvoiceID))
		return nil
	}
	account, err := s.accounts.FindByStripeCustomerID(ctx, in.CustomerID)
	if err != nil {
		if isNotFound(err) {
			s.logger.Warn("No account for Stripe customer", zap.String("customer_id", in.CustomerID))
			return nil
		}
		return err
	}

	inv, err := s.invoices.FindByStripeID(ctx, in.Input.StripeInvoiceID)
	switch {
	case err == nil:
		if !inv.Apply(in.Input) {
			s.logger.Info("Ignoring update to a paid invoice",
				zap.String("invoice_id", inv.StripeInvoiceID),
				zap.String("status", string(in.Input.Status)),
			)
			return nil
		}
	case isNotFound(err):
		if inv, err = billing.NewInvoice(account.ID, in.Input); err != nil {
			return err
		}
	default:
		return err
	}
	if err := s.invoices.Upsert(ctx, inv); err != nil {
		return err
	}

	s.logger.Info("Invoice recorded",
		zap.String("account_id", account.ID.String()),
		zap.String("invoice_id", inv.StripeInvoiceID),
		zap.String("status", string(inv.Status)),
		zap.String("amount_due", inv.AmountDue.StringFixed(2)),
	)
	return nil
}
